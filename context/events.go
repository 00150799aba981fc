// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"net/netip"
)

// SliceServer carries every event that mutates slice state to the single
// slice event handler.
type SliceServer struct {
	RcvEventCh chan SliceEvt
	StopServer chan struct{}
	Done       chan struct{}
}

// Post hands evt to the slice event handler. It returns false once the
// handler has stopped.
func (s *SliceServer) Post(evt SliceEvt) bool {
	select {
	case <-s.Done:
		return false
	default:
	}
	select {
	case s.RcvEventCh <- evt:
		return true
	case <-s.Done:
		return false
	}
}

// SliceEventType enumerates slice manager event types
type SliceEventType int64

const (
	KernelIpReport SliceEventType = iota
	ForegroundAppChanged
	DnsResult
	UrspChanged
	AirModeChanged
	WifiConnChanged
	VpnModeChanged
	ScreenStateChanged
	SaStateChanged
	NetworkActivateResult
	NetworkParaForbiddenTimeout
	UidRemoved
	NetworkAvailable
	NetworkLost
	NetworkUnavailable
	DumpSlices
	NetworkRequested
	DefaultDataChanged
	MobileDataChanged
	GetRsdByNetCap
)

// SliceEvt is the interface for all slice manager events
type SliceEvt interface {
	Type() SliceEventType
}

// KernelIpReportEvt carries a raw kernel record; it is parsed by the handler.
type KernelIpReportEvt struct {
	Data []byte
}

func (e *KernelIpReportEvt) Type() SliceEventType {
	return KernelIpReport
}

func NewKernelIpReportEvt(data []byte) *KernelIpReportEvt {
	return &KernelIpReportEvt{
		Data: data,
	}
}

// ForegroundAppChangedEvt event
type ForegroundAppChangedEvt struct {
	Uid        int
	BundleName string
	State      int
	Focused    bool
}

func (e *ForegroundAppChangedEvt) Type() SliceEventType {
	return ForegroundAppChanged
}

func NewForegroundAppChangedEvt(uid int, bundleName string, state int, focused bool) *ForegroundAppChangedEvt {
	return &ForegroundAppChangedEvt{
		Uid:        uid,
		BundleName: bundleName,
		State:      state,
		Focused:    focused,
	}
}

// DnsResultEvt event
type DnsResultEvt struct {
	Uid   int
	Fqdn  string
	Addrs []netip.Addr
}

func (e *DnsResultEvt) Type() SliceEventType {
	return DnsResult
}

func NewDnsResultEvt(uid int, fqdn string, addrs []netip.Addr) *DnsResultEvt {
	return &DnsResultEvt{
		Uid:   uid,
		Fqdn:  fqdn,
		Addrs: addrs,
	}
}

// UrspChangedEvt event
type UrspChangedEvt struct {
	Data map[string]string
}

func (e *UrspChangedEvt) Type() SliceEventType {
	return UrspChanged
}

func NewUrspChangedEvt(data map[string]string) *UrspChangedEvt {
	return &UrspChangedEvt{
		Data: data,
	}
}

// AirModeChangedEvt event
type AirModeChangedEvt struct {
	On bool
}

func (e *AirModeChangedEvt) Type() SliceEventType {
	return AirModeChanged
}

func NewAirModeChangedEvt(on bool) *AirModeChangedEvt {
	return &AirModeChangedEvt{On: on}
}

// WifiConnChangedEvt event
type WifiConnChangedEvt struct {
	State int
}

func (e *WifiConnChangedEvt) Type() SliceEventType {
	return WifiConnChanged
}

func NewWifiConnChangedEvt(state int) *WifiConnChangedEvt {
	return &WifiConnChangedEvt{State: state}
}

// VpnModeChangedEvt event
type VpnModeChangedEvt struct {
	On bool
}

func (e *VpnModeChangedEvt) Type() SliceEventType {
	return VpnModeChanged
}

func NewVpnModeChangedEvt(on bool) *VpnModeChangedEvt {
	return &VpnModeChangedEvt{On: on}
}

// ScreenStateChangedEvt event
type ScreenStateChangedEvt struct {
	On bool
}

func (e *ScreenStateChangedEvt) Type() SliceEventType {
	return ScreenStateChanged
}

func NewScreenStateChangedEvt(on bool) *ScreenStateChangedEvt {
	return &ScreenStateChangedEvt{On: on}
}

// SaStateChangedEvt event
type SaStateChangedEvt struct {
	On bool
}

func (e *SaStateChangedEvt) Type() SliceEventType {
	return SaStateChanged
}

func NewSaStateChangedEvt(on bool) *SaStateChangedEvt {
	return &SaStateChangedEvt{On: on}
}

// NetworkActivateResultEvt reports the outcome of a slice PDU session
// activation.
type NetworkActivateResultEvt struct {
	Result         int
	Dnn            string
	SNssai         string
	PduSessionType int
	SscMode        uint8
}

func (e *NetworkActivateResultEvt) Type() SliceEventType {
	return NetworkActivateResult
}

func NewNetworkActivateResultEvt(result int, dnn, sNssai string, pduSessionType int,
	sscMode uint8,
) *NetworkActivateResultEvt {
	return &NetworkActivateResultEvt{
		Result:         result,
		Dnn:            dnn,
		SNssai:         sNssai,
		PduSessionType: pduSessionType,
		SscMode:        sscMode,
	}
}

// NetworkParaForbiddenTimeoutEvt event
type NetworkParaForbiddenTimeoutEvt struct{}

func (e *NetworkParaForbiddenTimeoutEvt) Type() SliceEventType {
	return NetworkParaForbiddenTimeout
}

func NewNetworkParaForbiddenTimeoutEvt() *NetworkParaForbiddenTimeoutEvt {
	return &NetworkParaForbiddenTimeoutEvt{}
}

// UidRemovedEvt event
type UidRemovedEvt struct {
	BundleName string
}

func (e *UidRemovedEvt) Type() SliceEventType {
	return UidRemoved
}

func NewUidRemovedEvt(bundleName string) *UidRemovedEvt {
	return &UidRemovedEvt{BundleName: bundleName}
}

// NetworkAvailableEvt event
type NetworkAvailableEvt struct {
	NetCap NetCap
	NetId  int
}

func (e *NetworkAvailableEvt) Type() SliceEventType {
	return NetworkAvailable
}

func NewNetworkAvailableEvt(netCap NetCap, netId int) *NetworkAvailableEvt {
	return &NetworkAvailableEvt{
		NetCap: netCap,
		NetId:  netId,
	}
}

// NetworkLostEvt event
type NetworkLostEvt struct {
	NetCap NetCap
	NetId  int
}

func (e *NetworkLostEvt) Type() SliceEventType {
	return NetworkLost
}

func NewNetworkLostEvt(netCap NetCap, netId int) *NetworkLostEvt {
	return &NetworkLostEvt{
		NetCap: netCap,
		NetId:  netId,
	}
}

// NetworkUnavailableEvt event
type NetworkUnavailableEvt struct {
	NetCap NetCap
}

func (e *NetworkUnavailableEvt) Type() SliceEventType {
	return NetworkUnavailable
}

func NewNetworkUnavailableEvt(netCap NetCap) *NetworkUnavailableEvt {
	return &NetworkUnavailableEvt{NetCap: netCap}
}

// SliceDump is a snapshot of one pool slot.
type SliceDump struct {
	NetCap             string                    `json:"netCap"`
	NetId              int                       `json:"netId"`
	RouteSelection     *RouteSelectionDescriptor `json:"routeSelectionDescriptor,omitempty"`
	TrafficDescriptors []TrafficDescriptorDump   `json:"trafficDescriptors,omitempty"`
}

type TrafficDescriptorDump struct {
	Descriptor string   `json:"descriptor"`
	BindType   string   `json:"bindType"`
	Uids       []int    `json:"uids"`
	UsedUids   []int    `json:"usedUids"`
	SignedUids []int    `json:"signedUids"`
	FqdnIps    []string `json:"fqdnIps,omitempty"`
}

// DumpSlicesEvt asks the handler for a snapshot of the pool. The reply
// channel must be buffered.
type DumpSlicesEvt struct {
	Reply chan []SliceDump
}

func (e *DumpSlicesEvt) Type() SliceEventType {
	return DumpSlices
}

func NewDumpSlicesEvt() *DumpSlicesEvt {
	return &DumpSlicesEvt{Reply: make(chan []SliceDump, 1)}
}

// NetworkRequestedEvt is an application asking for a slice network by data
// network name or connection capability.
type NetworkRequestedEvt struct {
	Uid int
	Dnn string
	Cct int
}

func (e *NetworkRequestedEvt) Type() SliceEventType {
	return NetworkRequested
}

func NewNetworkRequestedEvt(uid int, dnn string, cct int) *NetworkRequestedEvt {
	return &NetworkRequestedEvt{
		Uid: uid,
		Dnn: dnn,
		Cct: cct,
	}
}

// DefaultDataChangedEvt follows the default data SIM slot.
type DefaultDataChangedEvt struct {
	OnMainCard bool
}

func (e *DefaultDataChangedEvt) Type() SliceEventType {
	return DefaultDataChanged
}

func NewDefaultDataChangedEvt(onMainCard bool) *DefaultDataChangedEvt {
	return &DefaultDataChangedEvt{OnMainCard: onMainCard}
}

// MobileDataChangedEvt event
type MobileDataChangedEvt struct {
	On bool
}

func (e *MobileDataChangedEvt) Type() SliceEventType {
	return MobileDataChanged
}

func NewMobileDataChangedEvt(on bool) *MobileDataChangedEvt {
	return &MobileDataChangedEvt{On: on}
}

// GetRsdByNetCapEvt asks the handler for the slice parameters last
// requested on NetCap. The reply channel must be buffered.
type GetRsdByNetCapEvt struct {
	NetCap NetCap
	Reply  chan map[string]string
}

func (e *GetRsdByNetCapEvt) Type() SliceEventType {
	return GetRsdByNetCap
}

func NewGetRsdByNetCapEvt(netCap NetCap) *GetRsdByNetCapEvt {
	return &GetRsdByNetCapEvt{
		NetCap: netCap,
		Reply:  make(chan map[string]string, 1),
	}
}
