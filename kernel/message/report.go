// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"
	"net/netip"
	"slices"
	"strconv"
)

const (
	IpReportControlLen = 12
	// Total record lengths of an IPv4 and an IPv6 ip report
	Ipv4ReportLen = 15
	Ipv6ReportLen = 27
)

// Keys of the map handed to the slice manager for an ip report
const (
	KeyUid        = "uid"
	KeyIp         = "ip"
	KeyRemotePort = "remotePort"
	KeyProtocolId = "protocolId"
)

// BuildIpReportControl encodes the fixed size record enabling or disabling
// ip parameter reports from the kernel.
func BuildIpReportControl(enable bool) []byte {
	var isEnable int16
	if enable {
		isEnable = 1
	}
	buf := make([]byte, 0, IpReportControlLen)
	buf = PutShort(buf, IP_PARA_REPORT_CONTROL_MSG, HeaderOrder)
	buf = PutShort(buf, IpReportControlLen, HeaderOrder)
	buf = PutShort(buf, isEnable, HeaderOrder)
	return append(buf, make([]byte, IpReportControlLen-len(buf))...)
}

// IpReport is a connection the kernel saw from a uid that may need a slice.
type IpReport struct {
	Type       int16
	Uid        int32
	Addr       netip.Addr
	RemotePort uint16
	ProtocolId uint8
}

// ParseIpReport decodes an inbound ip report. All fields are little endian
// and the address bytes arrive reversed.
func ParseIpReport(b []byte) (*IpReport, error) {
	offset := 0
	msgType, err := GetShort(b, &offset, ReportOrder)
	if err != nil {
		return nil, err
	}
	length, err := GetShort(b, &offset, ReportOrder)
	if err != nil {
		return nil, err
	}
	uid, err := GetInt(b, &offset, ReportOrder)
	if err != nil {
		return nil, err
	}

	var addrLen int
	switch length {
	case Ipv4ReportLen:
		addrLen = LenIpv4
	case Ipv6ReportLen:
		addrLen = LenIpv6
	default:
		return nil, fmt.Errorf("report length %d: %w", length, ErrInvalidReportLength)
	}
	if len(b) < int(length) {
		return nil, fmt.Errorf("report length %d with %d bytes: %w", length, len(b), ErrInvalidReportLength)
	}

	raw, err := getBytes(b, &offset, addrLen)
	if err != nil {
		return nil, err
	}
	slices.Reverse(raw)
	addr, ok := netip.AddrFromSlice(raw)
	if !ok {
		return nil, ErrInvalidReportLength
	}
	port, err := GetShort(b, &offset, ReportOrder)
	if err != nil {
		return nil, err
	}
	protocolId, err := getByte(b, &offset)
	if err != nil {
		return nil, err
	}
	return &IpReport{
		Type:       msgType,
		Uid:        uid,
		Addr:       addr,
		RemotePort: uint16(port),
		ProtocolId: protocolId,
	}, nil
}

// IpString renders IPv4 dotted and IPv6 in the fixed eight group form.
func (r *IpReport) IpString() string {
	if r.Addr.Is4() {
		return r.Addr.String()
	}
	b := r.Addr.As16()
	s, _ := Ipv6ToString(b[:])
	return s
}

func (r *IpReport) ToMap() map[string]string {
	return map[string]string{
		KeyUid:        strconv.Itoa(int(r.Uid)),
		KeyIp:         r.IpString(),
		KeyRemotePort: strconv.Itoa(int(r.RemotePort)),
		KeyProtocolId: strconv.Itoa(int(r.ProtocolId)),
	}
}
