// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net/netip"
	"slices"
	"strings"
	"testing"
)

func buildIpReport(r *IpReport) []byte {
	raw := r.Addr.AsSlice()
	length := Ipv4ReportLen
	if r.Addr.Is6() {
		length = Ipv6ReportLen
	}
	buf := PutShort(nil, r.Type, ReportOrder)
	buf = PutShort(buf, int16(length), ReportOrder)
	buf = PutInt(buf, r.Uid, ReportOrder)
	slices.Reverse(raw)
	buf = append(buf, raw...)
	buf = PutShort(buf, int16(r.RemotePort), ReportOrder)
	return append(buf, r.ProtocolId)
}

func TestPutGetExplicitOrder(t *testing.T) {
	be := PutInt(nil, 0x01020304, binary.BigEndian)
	if !bytes.Equal(be, []byte{1, 2, 3, 4}) {
		t.Errorf("Expected big endian bytes 01020304, got %x", be)
	}
	le := PutInt(nil, 0x01020304, binary.LittleEndian)
	if !bytes.Equal(le, []byte{4, 3, 2, 1}) {
		t.Errorf("Expected little endian bytes 04030201, got %x", le)
	}

	buf := PutShort(nil, -2, binary.BigEndian)
	buf = PutShort(buf, 0x0102, binary.LittleEndian)
	offset := 0
	v, err := GetShort(buf, &offset, binary.BigEndian)
	if err != nil || v != -2 {
		t.Errorf("Expected -2, got %d (%v)", v, err)
	}
	v, err = GetShort(buf, &offset, binary.LittleEndian)
	if err != nil || v != 0x0102 {
		t.Errorf("Expected 0x0102, got %#x (%v)", v, err)
	}
	if _, err = GetShort(buf, &offset, binary.LittleEndian); !errors.Is(err, ErrInvalidMessageLength) {
		t.Errorf("Expected ErrInvalidMessageLength past the end, got %v", err)
	}
	if offset != 4 {
		t.Errorf("Offset must not advance on failure, got %d", offset)
	}
}

func TestStringBytesRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0xff, 0x80, 0x0a}
	if got := StringToBytes(BytesToString(raw)); !bytes.Equal(got, raw) {
		t.Errorf("Expected %x, got %x", raw, got)
	}
}

func TestIpv6ToString(t *testing.T) {
	addr := netip.MustParseAddr("2001:db8::1").As16()
	s, err := Ipv6ToString(addr[:])
	if err != nil {
		t.Fatalf("Ipv6ToString failed: %v", err)
	}
	if s != "2001:0db8:0000:0000:0000:0000:0000:0001" {
		t.Errorf("Unexpected rendering %s", s)
	}
	if _, err := Ipv6ToString([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for short input")
	}
}

func TestRouteParaRoundTrip(t *testing.T) {
	v4 := []byte{1, 1, 1, 1, 255, 255, 255, 255, 2, 2, 2, 2, 255, 255, 255, 255}
	v6addr := netip.MustParseAddr("2001:db8::2").As16()
	v6 := append(v6addr[:], 128)

	data := map[string]string{
		KeyNetId:             "42",
		KeyUrspPrecedence:    "5",
		KeyUids:              "1000,1001,",
		KeyIpv4Num:           "2",
		KeyIpv4AddrAndMask:   string(v4),
		KeyIpv6Num:           "1",
		KeyIpv6AddrAndPrefix: string(v6),
		KeyProtocolIds:       "6,17",
		KeyRemotePorts:       "443,8000-8080,53",
	}
	p, err := NewRoutePara(data)
	if err != nil {
		t.Fatalf("NewRoutePara failed: %v", err)
	}

	expectedLen := 2 + 2 + 4 + 1 + (1 + 4*2) + (1 + 8*2) + (1 + 17) + (1 + 2) + (1 + 2*2) + (1 + 4)
	if int(p.Len) != expectedLen {
		t.Errorf("Expected len %d, got %d", expectedLen, p.Len)
	}

	b, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if len(b) != expectedLen {
		t.Fatalf("Expected %d bytes, got %d", expectedLen, len(b))
	}
	if binary.LittleEndian.Uint16(b[0:2]) != uint16(KERNEL_BIND_UID_MSG) {
		t.Errorf("Expected record type %d", KERNEL_BIND_UID_MSG)
	}
	if binary.BigEndian.Uint32(b[4:8]) != 42 {
		t.Errorf("Expected big endian netId 42, got %x", b[4:8])
	}

	decoded, err := UnmarshalRoutePara(b)
	if err != nil {
		t.Fatalf("UnmarshalRoutePara failed: %v", err)
	}
	if decoded.NetId != 42 || decoded.UrspPrecedence != 5 {
		t.Errorf("Unexpected netId/precedence %d/%d", decoded.NetId, decoded.UrspPrecedence)
	}
	if !slices.Equal(decoded.Uids, []int32{1000, 1001}) {
		t.Errorf("Unexpected uids %v", decoded.Uids)
	}
	if decoded.Ipv4Num() != 2 || decoded.Ipv6Num() != 1 {
		t.Errorf("Unexpected ip counts %d/%d", decoded.Ipv4Num(), decoded.Ipv6Num())
	}
	if !bytes.Equal(decoded.Ipv4AddrAndMasks, v4) || !bytes.Equal(decoded.Ipv6AddrAndPrefix, v6) {
		t.Error("Address buffers differ after decode")
	}
	if !bytes.Equal(decoded.ProtocolIds, []byte{6, 17}) {
		t.Errorf("Unexpected protocol ids %v", decoded.ProtocolIds)
	}
	if !slices.Equal(decoded.SingleRemotePorts, []uint16{443, 53}) {
		t.Errorf("Unexpected single ports %v", decoded.SingleRemotePorts)
	}
	if !slices.Equal(decoded.RemotePortRanges, []PortRange{{Start: 8000, End: 8080}}) {
		t.Errorf("Unexpected port ranges %v", decoded.RemotePortRanges)
	}
}

func TestRouteParaIpNumMismatch(t *testing.T) {
	_, err := NewRoutePara(map[string]string{
		KeyIpv4Num:         "2",
		KeyIpv4AddrAndMask: string([]byte{1, 1, 1, 1, 255, 255, 255, 255}),
	})
	if !errors.Is(err, ErrIpNumMismatch) {
		t.Errorf("Expected ErrIpNumMismatch, got %v", err)
	}
}

func TestCalculateParaLenOverflow(t *testing.T) {
	p := &RoutePara{Uids: make([]int32, 255), Ipv6AddrAndPrefix: make([]byte, Ipv6AddrAndPrefixLen*255)}
	if err := p.CalculateParaLen(); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	p.Uids = append(p.Uids, 1)
	if err := p.CalculateParaLen(); !errors.Is(err, ErrTooManyEntries) {
		t.Errorf("Expected ErrTooManyEntries, got %v", err)
	}

	p = &RoutePara{Uids: make([]int32, 0x4000)}
	if err := p.CalculateParaLen(); !errors.Is(err, ErrParaLenOverflow) {
		t.Errorf("Expected ErrParaLenOverflow, got %v", err)
	}
	if p.Len != 0 {
		t.Errorf("Len must stay unset on overflow, got %d", p.Len)
	}
}

func TestDeleteParaRoundTrip(t *testing.T) {
	p, err := NewDeletePara(map[string]string{
		KeyDelType:        "2",
		KeyNetId:          "42",
		KeyUids:           "1000,1001",
		KeyUrspPrecedence: "5",
	})
	if err != nil {
		t.Fatalf("NewDeletePara failed: %v", err)
	}
	b, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if len(b) != 2+2+4+4+4+4+4+8 {
		t.Errorf("Unexpected length %d", len(b))
	}
	decoded, err := UnmarshalDeletePara(b)
	if err != nil {
		t.Fatalf("UnmarshalDeletePara failed: %v", err)
	}
	if decoded.DelType != DelBindPrecedence || decoded.NetId != 42 {
		t.Errorf("Unexpected type/netId %d/%d", decoded.DelType, decoded.NetId)
	}
	if !slices.Equal(decoded.Precedences, []int32{5}) || !slices.Equal(decoded.Uids, []int32{1000, 1001}) {
		t.Errorf("Unexpected lists %v %v", decoded.Precedences, decoded.Uids)
	}

	if _, err := NewDeletePara(map[string]string{KeyDelType: "3"}); !errors.Is(err, ErrInvalidDelType) {
		t.Errorf("Expected ErrInvalidDelType, got %v", err)
	}
	p, err = NewDeletePara(map[string]string{KeyDelType: "0"})
	if err != nil || p.NetId != -1 {
		t.Errorf("Expected default netId -1, got %v (%v)", p, err)
	}
}

func TestBuildIpReportControl(t *testing.T) {
	b := BuildIpReportControl(true)
	if len(b) != IpReportControlLen {
		t.Fatalf("Expected %d bytes, got %d", IpReportControlLen, len(b))
	}
	if binary.LittleEndian.Uint16(b[0:2]) != 9 || binary.LittleEndian.Uint16(b[2:4]) != 12 ||
		binary.LittleEndian.Uint16(b[4:6]) != 1 {
		t.Errorf("Unexpected control record %x", b)
	}
	if BuildIpReportControl(false)[4] != 0 {
		t.Error("Expected disabled flag")
	}
}

func TestParseIpReport(t *testing.T) {
	testCases := []struct {
		name string
		in   IpReport
		ip   string
	}{
		{
			name: "ipv4",
			in:   IpReport{Type: 4, Uid: 1000, Addr: netip.MustParseAddr("10.1.2.3"), RemotePort: 443, ProtocolId: 6},
			ip:   "10.1.2.3",
		},
		{
			name: "ipv6",
			in:   IpReport{Type: 4, Uid: 2000, Addr: netip.MustParseAddr("2001:db8::5"), RemotePort: 53, ProtocolId: 17},
			ip:   "2001:0db8:0000:0000:0000:0000:0000:0005",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := ParseIpReport(buildIpReport(&tc.in))
			if err != nil {
				t.Fatalf("ParseIpReport failed: %v", err)
			}
			if r.Uid != tc.in.Uid || r.Addr != tc.in.Addr || r.RemotePort != tc.in.RemotePort ||
				r.ProtocolId != tc.in.ProtocolId {
				t.Errorf("Expected %+v, got %+v", tc.in, r)
			}
			m := r.ToMap()
			if m[KeyIp] != tc.ip {
				t.Errorf("Expected ip %s, got %s", tc.ip, m[KeyIp])
			}
		})
	}
}

func TestParseIpReportRejectsLength(t *testing.T) {
	b := buildIpReport(&IpReport{Uid: 1, Addr: netip.MustParseAddr("1.2.3.4")})
	binary.LittleEndian.PutUint16(b[2:4], 16)
	_, err := ParseIpReport(b)
	if err == nil || !strings.Contains(err.Error(), "report length 16") {
		t.Errorf("Expected report length error, got %v", err)
	}
	if _, err := ParseIpReport(b[:3]); !errors.Is(err, ErrInvalidMessageLength) {
		t.Errorf("Expected ErrInvalidMessageLength, got %v", err)
	}
}

func TestRecordHeadersShareHostOrder(t *testing.T) {
	bind, err := NewRoutePara(map[string]string{
		KeyNetId:          "42",
		KeyUrspPrecedence: "5",
		KeyUids:           "1000,",
	})
	if err != nil {
		t.Fatalf("NewRoutePara failed: %v", err)
	}
	bindRecord, err := bind.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	unbind, err := NewDeletePara(map[string]string{KeyDelType: "1", KeyNetId: "42"})
	if err != nil {
		t.Fatalf("NewDeletePara failed: %v", err)
	}
	unbindRecord, err := unbind.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	testCases := []struct {
		name    string
		record  []byte
		msgType int16
	}{
		{"bind", bindRecord, KERNEL_BIND_UID_MSG},
		{"unbind", unbindRecord, KERNEL_DEL_UID_BIND_MSG},
		{"report control", BuildIpReportControl(true), IP_PARA_REPORT_CONTROL_MSG},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header := []byte{byte(tc.msgType), 0, byte(len(tc.record)), byte(len(tc.record) >> 8)}
			if !bytes.Equal(tc.record[:KernelMsgHeaderLen], header) {
				t.Errorf("Expected header %x, got %x", header, tc.record[:KernelMsgHeaderLen])
			}
		})
	}
	// the body after the header stays in network order
	if !bytes.Equal(bindRecord[KernelMsgHeaderLen:KernelMsgHeaderLen+LenInt], []byte{0, 0, 0, 42}) {
		t.Errorf("Expected big endian net id, got %x", bindRecord[KernelMsgHeaderLen:KernelMsgHeaderLen+LenInt])
	}
}
