// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"encoding/binary"
	"errors"
)

// Netlink message types exchanged with the slice kernel module
const (
	NETWORKSLICE_REG_MSG  uint16 = 0
	NETWORKSLICE_DATA_MSG uint16 = 1
)

// Kernel record types carried in a NETWORKSLICE_DATA_MSG payload
const (
	KERNEL_RSP_SLICE_IP_PARA   int16 = 4
	IP_PARA_REPORT_CONTROL_MSG int16 = 9
	KERNEL_BIND_UID_MSG        int16 = 15
	KERNEL_DEL_UID_BIND_MSG    int16 = 16
)

const (
	// NETLINK_BUFFER_MAX_SIZE bounds a single kernel record in both directions.
	NETLINK_BUFFER_MAX_SIZE = 4080
	// NETLINK_RECV_BUFFER_SIZE is the receive buffer for one netlink frame.
	NETLINK_RECV_BUFFER_SIZE = 4096
	// KernelMsgHeaderLen is the int16 type + int16 len prefix of every record.
	KernelMsgHeaderLen = LenShort + LenShort

	maxParaLen   = 0xFFFF
	maxByteCount = 0xFF
)

// Record headers are written in host order by the kernel side (little endian
// on every supported target); record bodies use network order.
var (
	HeaderOrder ByteOrder = binary.LittleEndian
	BodyOrder   ByteOrder = binary.BigEndian
	ReportOrder ByteOrder = binary.LittleEndian
)

// DelBindType selects which bindings an unbind record removes.
type DelBindType int32

const (
	DelBindAll DelBindType = iota
	DelBindNetId
	DelBindPrecedence
)

var (
	ErrInvalidMessageLength = errors.New("invalid kernel message length")
	ErrParaLenOverflow      = errors.New("kernel bind message length exceeds 16 bits")
	ErrTooManyEntries       = errors.New("too many entries for an 8 bit counter")
	ErrIpNumMismatch        = errors.New("ip count does not match address buffer")
	ErrInvalidReportLength  = errors.New("invalid ip report length")
	ErrInvalidDelType       = errors.New("invalid unbind type")
	ErrInvalidParameter     = errors.New("invalid kernel message parameter")
)
