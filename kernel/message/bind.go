// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys of the string map describing a bind or unbind request
const (
	KeyNetId             = "netId"
	KeyUrspPrecedence    = "urspPrecedence"
	KeyUids              = "uids"
	KeyIpv4Num           = "ipv4Num"
	KeyIpv4AddrAndMask   = "ipv4AddrAndMask"
	KeyIpv6Num           = "ipv6Num"
	KeyIpv6AddrAndPrefix = "ipv6AddrAndPrefix"
	KeyProtocolIds       = "protocolIds"
	KeyRemotePorts       = "remotePorts"
	KeyDelType           = "type"

	Separator      = ","
	PortRangeToken = "-"

	Ipv4AddrAndMaskLen   = LenIpv4 + LenIpv4
	Ipv6AddrAndPrefixLen = LenIpv6 + LenByte
)

type PortRange struct {
	Start uint16
	End   uint16
}

// RoutePara is the content of a KERNEL_BIND_UID_MSG record.
type RoutePara struct {
	Len               uint16
	NetId             int32
	UrspPrecedence    uint8
	Uids              []int32
	Ipv4AddrAndMasks  []byte
	Ipv6AddrAndPrefix []byte
	ProtocolIds       []uint8
	SingleRemotePorts []uint16
	RemotePortRanges  []PortRange
}

func (p *RoutePara) Ipv4Num() int { return len(p.Ipv4AddrAndMasks) / Ipv4AddrAndMaskLen }

func (p *RoutePara) Ipv6Num() int { return len(p.Ipv6AddrAndPrefix) / Ipv6AddrAndPrefixLen }

// NewRoutePara builds the bind record parameters from a bind request map
// and computes the record length.
func NewRoutePara(data map[string]string) (*RoutePara, error) {
	p := &RoutePara{}

	uids, err := ParseIntList(data[KeyUids])
	if err != nil {
		return nil, fmt.Errorf("uids: %w", err)
	}
	p.Uids = uids

	ipv4Num, err := parseOptionalInt(data, KeyIpv4Num)
	if err != nil {
		return nil, err
	}
	if ipv4Num != 0 {
		buf := StringToBytes(data[KeyIpv4AddrAndMask])
		if len(buf) != Ipv4AddrAndMaskLen*ipv4Num {
			return nil, fmt.Errorf("ipv4Num %d with %d address bytes: %w", ipv4Num, len(buf), ErrIpNumMismatch)
		}
		p.Ipv4AddrAndMasks = buf
	}

	ipv6Num, err := parseOptionalInt(data, KeyIpv6Num)
	if err != nil {
		return nil, err
	}
	if ipv6Num != 0 {
		buf := StringToBytes(data[KeyIpv6AddrAndPrefix])
		if len(buf) != Ipv6AddrAndPrefixLen*ipv6Num {
			return nil, fmt.Errorf("ipv6Num %d with %d address bytes: %w", ipv6Num, len(buf), ErrIpNumMismatch)
		}
		p.Ipv6AddrAndPrefix = buf
	}

	if protocolIds := data[KeyProtocolIds]; protocolIds != "" {
		for _, id := range strings.Split(protocolIds, Separator) {
			if id == "" {
				continue
			}
			v, err := strconv.ParseUint(strings.TrimSpace(id), 10, 8)
			if err != nil {
				return nil, fmt.Errorf("protocolId %q: %w", id, ErrInvalidParameter)
			}
			p.ProtocolIds = append(p.ProtocolIds, uint8(v))
		}
	}

	if remotePorts := data[KeyRemotePorts]; remotePorts != "" {
		for _, port := range strings.Split(remotePorts, Separator) {
			if port == "" {
				continue
			}
			if strings.Contains(port, PortRangeToken) {
				r, err := parsePortRange(port)
				if err != nil {
					return nil, err
				}
				p.RemotePortRanges = append(p.RemotePortRanges, r)
				continue
			}
			v, err := parsePort(port)
			if err != nil {
				return nil, err
			}
			p.SingleRemotePorts = append(p.SingleRemotePorts, v)
		}
	}

	netId, err := parseOptionalInt(data, KeyNetId)
	if err != nil {
		return nil, err
	}
	p.NetId = int32(netId)

	precedence, err := parseOptionalInt(data, KeyUrspPrecedence)
	if err != nil {
		return nil, err
	}
	p.UrspPrecedence = uint8(precedence)

	if err := p.CalculateParaLen(); err != nil {
		return nil, err
	}
	return p, nil
}

// CalculateParaLen sets Len to the full record length including the header.
// A length beyond 16 bits or a counter beyond 8 bits is rejected.
func (p *RoutePara) CalculateParaLen() error {
	total := KernelMsgHeaderLen +
		LenInt +
		LenByte +
		LenByte + LenInt*len(p.Uids) +
		LenByte + Ipv4AddrAndMaskLen*p.Ipv4Num() +
		LenByte + Ipv6AddrAndPrefixLen*p.Ipv6Num() +
		LenByte + LenByte*len(p.ProtocolIds) +
		LenByte + LenShort*len(p.SingleRemotePorts) +
		LenByte + LenInt*len(p.RemotePortRanges)
	if total > maxParaLen {
		return ErrParaLenOverflow
	}
	counts := []int{
		len(p.Uids), p.Ipv4Num(), p.Ipv6Num(), len(p.ProtocolIds),
		len(p.SingleRemotePorts), len(p.RemotePortRanges),
	}
	for _, c := range counts {
		if c > maxByteCount {
			return ErrTooManyEntries
		}
	}
	p.Len = uint16(total)
	return nil
}

// Marshal encodes the bind record.
func (p *RoutePara) Marshal() ([]byte, error) {
	if p.Len == 0 {
		if err := p.CalculateParaLen(); err != nil {
			return nil, err
		}
	}
	buf := make([]byte, 0, p.Len)
	buf = PutShort(buf, KERNEL_BIND_UID_MSG, HeaderOrder)
	buf = PutShort(buf, int16(p.Len), HeaderOrder)
	buf = PutInt(buf, p.NetId, BodyOrder)
	buf = append(buf, p.UrspPrecedence)
	buf = append(buf, uint8(len(p.Uids)))
	for _, uid := range p.Uids {
		buf = PutInt(buf, uid, BodyOrder)
	}
	buf = append(buf, uint8(p.Ipv4Num()))
	buf = append(buf, p.Ipv4AddrAndMasks...)
	buf = append(buf, uint8(p.Ipv6Num()))
	buf = append(buf, p.Ipv6AddrAndPrefix...)
	buf = append(buf, uint8(len(p.ProtocolIds)))
	buf = append(buf, p.ProtocolIds...)
	buf = append(buf, uint8(len(p.SingleRemotePorts)))
	for _, port := range p.SingleRemotePorts {
		buf = PutShort(buf, int16(port), BodyOrder)
	}
	buf = append(buf, uint8(len(p.RemotePortRanges)))
	for _, r := range p.RemotePortRanges {
		buf = PutShort(buf, int16(r.Start), BodyOrder)
		buf = PutShort(buf, int16(r.End), BodyOrder)
	}
	if len(buf) != int(p.Len) {
		return nil, fmt.Errorf("encoded %d bytes, expected %d: %w", len(buf), p.Len, ErrInvalidMessageLength)
	}
	return buf, nil
}

// UnmarshalRoutePara decodes a bind record produced by Marshal.
func UnmarshalRoutePara(b []byte) (*RoutePara, error) {
	offset := 0
	msgType, err := GetShort(b, &offset, HeaderOrder)
	if err != nil {
		return nil, err
	}
	if msgType != KERNEL_BIND_UID_MSG {
		return nil, fmt.Errorf("record type %d: %w", msgType, ErrInvalidParameter)
	}
	length, err := GetShort(b, &offset, HeaderOrder)
	if err != nil {
		return nil, err
	}
	if int(uint16(length)) != len(b) {
		return nil, ErrInvalidMessageLength
	}

	p := &RoutePara{Len: uint16(length)}
	if p.NetId, err = GetInt(b, &offset, BodyOrder); err != nil {
		return nil, err
	}
	if p.UrspPrecedence, err = getByte(b, &offset); err != nil {
		return nil, err
	}

	n, err := getByte(b, &offset)
	if err != nil {
		return nil, err
	}
	for range n {
		uid, err := GetInt(b, &offset, BodyOrder)
		if err != nil {
			return nil, err
		}
		p.Uids = append(p.Uids, uid)
	}

	if n, err = getByte(b, &offset); err != nil {
		return nil, err
	}
	if n > 0 {
		if p.Ipv4AddrAndMasks, err = getBytes(b, &offset, Ipv4AddrAndMaskLen*int(n)); err != nil {
			return nil, err
		}
	}

	if n, err = getByte(b, &offset); err != nil {
		return nil, err
	}
	if n > 0 {
		if p.Ipv6AddrAndPrefix, err = getBytes(b, &offset, Ipv6AddrAndPrefixLen*int(n)); err != nil {
			return nil, err
		}
	}

	if n, err = getByte(b, &offset); err != nil {
		return nil, err
	}
	if n > 0 {
		if p.ProtocolIds, err = getBytes(b, &offset, int(n)); err != nil {
			return nil, err
		}
	}

	if n, err = getByte(b, &offset); err != nil {
		return nil, err
	}
	for range n {
		port, err := GetShort(b, &offset, BodyOrder)
		if err != nil {
			return nil, err
		}
		p.SingleRemotePorts = append(p.SingleRemotePorts, uint16(port))
	}

	if n, err = getByte(b, &offset); err != nil {
		return nil, err
	}
	for range n {
		start, err := GetShort(b, &offset, BodyOrder)
		if err != nil {
			return nil, err
		}
		end, err := GetShort(b, &offset, BodyOrder)
		if err != nil {
			return nil, err
		}
		p.RemotePortRanges = append(p.RemotePortRanges, PortRange{Start: uint16(start), End: uint16(end)})
	}

	if offset != len(b) {
		return nil, ErrInvalidMessageLength
	}
	return p, nil
}

// ParseIntList parses a comma separated list of decimal integers, skipping
// empty items such as the trailing separator.
func ParseIntList(s string) ([]int32, error) {
	if s == "" {
		return nil, nil
	}
	var values []int32
	for _, item := range strings.Split(s, Separator) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		v, err := strconv.ParseInt(item, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", item, ErrInvalidParameter)
		}
		values = append(values, int32(v))
	}
	return values, nil
}

func parseOptionalInt(data map[string]string, key string) (int, error) {
	s, ok := data[key]
	if !ok || s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, s, ErrInvalidParameter)
	}
	return v, nil
}

func parsePort(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("remote port %q: %w", s, ErrInvalidParameter)
	}
	return uint16(v), nil
}

func parsePortRange(s string) (PortRange, error) {
	bounds := strings.SplitN(s, PortRangeToken, 2)
	start, err := parsePort(bounds[0])
	if err != nil {
		return PortRange{}, err
	}
	end, err := parsePort(bounds[1])
	if err != nil {
		return PortRange{}, err
	}
	return PortRange{Start: start, End: end}, nil
}
