// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ByteOrder both decodes and appends fixed width integers.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

const (
	LenByte  = 1
	LenShort = 2
	LenInt   = 4
	LenIpv4  = 4
	LenIpv6  = 16
)

// PutShort appends a 16 bit integer in the given byte order.
func PutShort(buf []byte, v int16, order ByteOrder) []byte {
	return order.AppendUint16(buf, uint16(v))
}

// PutInt appends a 32 bit integer in the given byte order.
func PutInt(buf []byte, v int32, order ByteOrder) []byte {
	return order.AppendUint32(buf, uint32(v))
}

// GetShort reads a 16 bit integer at *offset and advances it.
func GetShort(buf []byte, offset *int, order ByteOrder) (int16, error) {
	if *offset < 0 || *offset+LenShort > len(buf) {
		return 0, ErrInvalidMessageLength
	}
	v := int16(order.Uint16(buf[*offset : *offset+LenShort]))
	*offset += LenShort
	return v, nil
}

// GetInt reads a 32 bit integer at *offset and advances it.
func GetInt(buf []byte, offset *int, order ByteOrder) (int32, error) {
	if *offset < 0 || *offset+LenInt > len(buf) {
		return 0, ErrInvalidMessageLength
	}
	v := int32(order.Uint32(buf[*offset : *offset+LenInt]))
	*offset += LenInt
	return v, nil
}

func getByte(buf []byte, offset *int) (uint8, error) {
	if *offset < 0 || *offset >= len(buf) {
		return 0, ErrInvalidMessageLength
	}
	v := buf[*offset]
	*offset++
	return v, nil
}

func getBytes(buf []byte, offset *int, n int) ([]byte, error) {
	if n < 0 || *offset < 0 || *offset+n > len(buf) {
		return nil, ErrInvalidMessageLength
	}
	v := make([]byte, n)
	copy(v, buf[*offset:*offset+n])
	*offset += n
	return v, nil
}

// StringToBytes converts a string carrying raw bytes without any transcoding.
func StringToBytes(s string) []byte {
	return []byte(s)
}

// BytesToString is the inverse of StringToBytes.
func BytesToString(b []byte) string {
	return string(b)
}

// Ipv6ToString renders 16 bytes as eight colon separated groups of four
// hex digits. Zero groups are never compressed.
func Ipv6ToString(b []byte) (string, error) {
	if len(b) != LenIpv6 {
		return "", fmt.Errorf("ipv6 address must be %d bytes, got %d", LenIpv6, len(b))
	}
	var sb strings.Builder
	for i := 0; i < LenIpv6; i += 2 {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%04x", binary.BigEndian.Uint16(b[i:i+2]))
	}
	return sb.String(), nil
}
