// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"testing"

	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/omec-project/slicemanager/kernel/message"
)

const testPlmn = "46001"

func pduSessionType(v int) *int {
	return &v
}

func testRules() []factory.UrspRule {
	return []factory.UrspRule{
		{
			Precedence: 200,
			TrafficDescriptor: factory.UrspTrafficDescriptor{
				MatchAll: true,
			},
			RouteSelectionDescriptors: []factory.UrspRouteSelectionDescriptor{
				{SscMode: 1, SNssai: "01000001", Dnn: "internet"},
			},
		},
		{
			Precedence: 5,
			TrafficDescriptor: factory.UrspTrafficDescriptor{
				AppIds: []string{"01020304050607080102030405060708#com.example.game"},
			},
			RouteSelectionDescriptors: []factory.UrspRouteSelectionDescriptor{
				{SscMode: 1, SNssai: "01000002", Dnn: "game", PduSessionType: pduSessionType(1)},
				{SscMode: 1, SNssai: "01000003", Dnn: "game2"},
			},
		},
		{
			Precedence: 10,
			TrafficDescriptor: factory.UrspTrafficDescriptor{
				Fqdns: []string{"video.example.com"},
			},
			RouteSelectionDescriptors: []factory.UrspRouteSelectionDescriptor{
				{SscMode: 1, SNssai: "01000004", Dnn: "video"},
			},
		},
		{
			Precedence: 20,
			TrafficDescriptor: factory.UrspTrafficDescriptor{
				Ipv4Addrs:   []string{"10.1.0.0/16"},
				ProtocolIds: []string{"6"},
				RemotePorts: []string{"443", "8000-8080"},
			},
			RouteSelectionDescriptors: []factory.UrspRouteSelectionDescriptor{
				{SscMode: 1, SNssai: "01000005", Dnn: "enterprise"},
			},
		},
	}
}

func TestSliceNetworkSelectionByAppId(t *testing.T) {
	s := NewStore(testPlmn, testRules())
	ad := context.AppDescriptor{
		Uid:     1000,
		OsAppId: context.REQUEST_NETWORK_SLICE_OS_ID + "com.example.game",
		Cct:     context.CCT_INVALID,
	}

	data, ok := s.SliceNetworkSelection(testPlmn, ad, nil)
	if !ok {
		t.Fatal("Expected a match")
	}
	rsd := context.MakeRouteSelectionDescriptor(data)
	if rsd.Dnn != "game" || rsd.PduSessionType != 1 || rsd.MatchAll {
		t.Errorf("Unexpected descriptor %s", rsd)
	}
	td := context.MakeTrafficDescriptor(data)
	if td.UrspPrecedence() != 5 || td.RouteBindType() != context.RouteBindUid {
		t.Errorf("Unexpected traffic descriptor %s", td)
	}

	forbidGame := func(rsd *context.RouteSelectionDescriptor) bool { return rsd.Dnn == "game" }
	data, ok = s.SliceNetworkSelection(testPlmn, ad, forbidGame)
	if !ok || data[context.RSD_DNN] != "game2" {
		t.Errorf("Expected the second descriptor, got %v", data)
	}
}

func TestSliceNetworkSelectionFallsBackToMatchAll(t *testing.T) {
	s := NewStore(testPlmn, testRules())
	ad := context.AppDescriptor{Uid: 1001, OsAppId: "com.other", Cct: context.CCT_INVALID}

	data, ok := s.SliceNetworkSelection(testPlmn, ad, nil)
	if !ok {
		t.Fatal("Expected the match-all rule")
	}
	if !context.MakeRouteSelectionDescriptor(data).MatchAll {
		t.Errorf("Expected match-all descriptor, got %v", data)
	}

	if _, ok := s.SliceNetworkSelection("00101", ad, nil); ok {
		t.Error("Expected no match for a foreign plmn")
	}
}

func TestSliceNetworkSelectionByFqdn(t *testing.T) {
	rules := testRules()[1:]
	s := NewStore(testPlmn, rules)

	ad := context.AppDescriptor{Uid: 1001, OsAppId: "com.other", Fqdn: "video.example.com", Cct: context.CCT_INVALID}
	data, ok := s.SliceNetworkSelection(testPlmn, ad, nil)
	if !ok {
		t.Fatal("Expected a match")
	}
	td := context.MakeTrafficDescriptor(data)
	if !td.IsMatchFqdn() || td.RouteBindType() != context.RouteBindIp {
		t.Errorf("Unexpected traffic descriptor %s", td)
	}

	ad.Fqdn = ""
	if _, ok := s.SliceNetworkSelection(testPlmn, ad, nil); ok {
		t.Error("An app without a matching component must not match")
	}
}

func TestSliceNetworkSelectionByIpTriad(t *testing.T) {
	s := NewStore(testPlmn, testRules()[1:])
	ad := context.AppDescriptor{
		Uid:        1002,
		Ipv4Addr:   "10.1.2.3",
		ProtocolId: "6",
		RemotePort: "8080",
		Cct:        context.CCT_INVALID,
	}

	data, ok := s.SliceNetworkSelection(testPlmn, ad, nil)
	if !ok {
		t.Fatal("Expected a match")
	}
	if data[context.TDS_IPV4_NUM] != "1" {
		t.Errorf("Expected one ipv4 prefix, got %s", data[context.TDS_IPV4_NUM])
	}
	buf := message.StringToBytes(data[context.TDS_IPV4_ADDRANDMASK])
	expected := []byte{10, 1, 0, 0, 255, 255, 0, 0}
	if string(buf) != string(expected) {
		t.Errorf("Expected %v, got %v", expected, buf)
	}

	para, err := message.NewRoutePara(map[string]string{
		message.KeyNetId:           "42",
		message.KeyIpv4Num:         data[context.TDS_IPV4_NUM],
		message.KeyIpv4AddrAndMask: data[context.TDS_IPV4_ADDRANDMASK],
		message.KeyProtocolIds:     data[context.TDS_PROTOCOLIDS],
		message.KeyRemotePorts:     data[context.TDS_REMOTEPORTS],
	})
	if err != nil {
		t.Fatalf("NewRoutePara failed: %v", err)
	}
	if len(para.SingleRemotePorts) != 1 || len(para.RemotePortRanges) != 1 {
		t.Errorf("Unexpected ports %v %v", para.SingleRemotePorts, para.RemotePortRanges)
	}

	ad.RemotePort = "9000"
	if _, ok := s.SliceNetworkSelection(testPlmn, ad, nil); ok {
		t.Error("Port outside every range must not match")
	}
}

func TestIsIpThreeTuplesInWhiteList(t *testing.T) {
	s := NewStore(testPlmn, testRules())
	ad := context.AppDescriptor{Ipv4Addr: "10.1.9.9", ProtocolId: "6", RemotePort: "443"}
	if !s.IsIpThreeTuplesInWhiteList(testPlmn, ad) {
		t.Error("Expected the connection to be covered")
	}
	ad.ProtocolId = "17"
	if s.IsIpThreeTuplesInWhiteList(testPlmn, ad) {
		t.Error("Expected udp to be rejected")
	}
	ad = context.AppDescriptor{Ipv6Addr: "2001:0db8:0000:0000:0000:0000:0000:0001", ProtocolId: "6", RemotePort: "443"}
	if s.IsIpThreeTuplesInWhiteList(testPlmn, ad) {
		t.Error("No ipv6 rule exists")
	}
}

func TestUrspChangedData(t *testing.T) {
	if NewStore(testPlmn, nil).UrspChangedData() != nil {
		t.Error("Expected nil for an empty table")
	}
	data := NewStore(testPlmn, testRules()).UrspChangedData()
	rsd := context.MakeRouteSelectionDescriptor(data)
	if !rsd.MatchAll || rsd.Dnn != "internet" {
		t.Errorf("Unexpected match-all descriptor %s", rsd)
	}
	data = NewStore(testPlmn, testRules()[1:]).UrspChangedData()
	if context.MakeRouteSelectionDescriptor(data).MatchAll {
		t.Error("Expected a plain availability marker")
	}
}
