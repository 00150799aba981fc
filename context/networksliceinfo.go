// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"slices"
)

const BEARER_CELLULAR = "cellular"

// NetworkRequest is what the connectivity layer is asked for when a slice
// network has to be brought up.
type NetworkRequest struct {
	NetCap    NetCap
	Bearer    string
	RequestId int64
	// Slice parameters copied from the route selection descriptor
	Paras map[string]string
}

// NetworkCallback is the per slot connectivity registration. It remembers
// which uids triggered the activation.
type NetworkCallback struct {
	NetCap      NetCap
	Uid         int
	NetId       int
	requestUids []int
}

func NewNetworkCallback(netCap NetCap) *NetworkCallback {
	return &NetworkCallback{NetCap: netCap, Uid: INVALID_UID, NetId: INVALID_NET_ID}
}

func (cb *NetworkCallback) CacheRequestUid(uid int) {
	cb.requestUids = addUnique(cb.requestUids, uid)
}

func (cb *NetworkCallback) RemoveRequestUid(uid int) {
	cb.requestUids = removeValue(cb.requestUids, uid)
}

func (cb *NetworkCallback) RequestUids() []int {
	return slices.Clone(cb.requestUids)
}

type sliceRouteEntry struct {
	td  *TrafficDescriptor
	sri *SliceRouteInfo
}

// NetworkSliceInfo is one slot of the slice pool. The slot is free while its
// route selection descriptor is nil.
type NetworkSliceInfo struct {
	netCap   NetCap
	netId    int
	rsd      *RouteSelectionDescriptor
	tempTd   *TrafficDescriptor
	request  *NetworkRequest
	callback *NetworkCallback
	routes   map[string]*sliceRouteEntry
}

func NewNetworkSliceInfo(netCap NetCap) *NetworkSliceInfo {
	return &NetworkSliceInfo{
		netCap:  netCap,
		netId:   INVALID_NET_ID,
		request: &NetworkRequest{NetCap: netCap, Bearer: BEARER_CELLULAR},
		routes:  make(map[string]*sliceRouteEntry),
	}
}

func (nsi *NetworkSliceInfo) NetCap() NetCap { return nsi.netCap }

func (nsi *NetworkSliceInfo) NetId() int { return nsi.netId }

func (nsi *NetworkSliceInfo) SetNetId(netId int) { nsi.netId = netId }

func (nsi *NetworkSliceInfo) RouteSelectionDescriptor() *RouteSelectionDescriptor { return nsi.rsd }

func (nsi *NetworkSliceInfo) SetRouteSelectionDescriptor(rsd *RouteSelectionDescriptor) {
	if rsd == nil {
		nsi.rsd = nil
		return
	}
	cp := *rsd
	nsi.rsd = &cp
}

func (nsi *NetworkSliceInfo) TempTrafficDescriptor() *TrafficDescriptor { return nsi.tempTd }

func (nsi *NetworkSliceInfo) SetTempTrafficDescriptor(td *TrafficDescriptor) { nsi.tempTd = td }

func (nsi *NetworkSliceInfo) NetworkRequest() *NetworkRequest { return nsi.request }

func (nsi *NetworkSliceInfo) NetworkCallback() *NetworkCallback { return nsi.callback }

func (nsi *NetworkSliceInfo) SetNetworkCallback(cb *NetworkCallback) { nsi.callback = cb }

func (nsi *NetworkSliceInfo) IsMatchAll() bool { return nsi.rsd.IsMatchAll() }

func (nsi *NetworkSliceInfo) IsRightNetworkSliceRsd(rsd *RouteSelectionDescriptor) bool {
	return nsi.rsd != nil && nsi.rsd.Equal(rsd)
}

func (nsi *NetworkSliceInfo) IsRightNetworkSliceNull() bool { return nsi.rsd == nil }

func (nsi *NetworkSliceInfo) IsRightNetworkSliceNetCap(netCap NetCap) bool {
	return nsi.netCap == netCap
}

// Clear frees the slot. The slot keeps its capability.
func (nsi *NetworkSliceInfo) Clear() {
	nsi.netId = INVALID_NET_ID
	nsi.rsd = nil
	nsi.tempTd = nil
	nsi.callback = nil
	nsi.request = &NetworkRequest{NetCap: nsi.netCap, Bearer: BEARER_CELLULAR}
	nsi.routes = make(map[string]*sliceRouteEntry)
}

// CacheTrafficDescriptors starts fresh bookkeeping for td on this slot.
func (nsi *NetworkSliceInfo) CacheTrafficDescriptors(td *TrafficDescriptor) {
	nsi.routes[td.Key()] = &sliceRouteEntry{td: td, sri: NewSliceRouteInfo()}
}

// SliceRouteInfo returns the live bookkeeping of td, or nil when td is not
// cached or cannot be bound.
func (nsi *NetworkSliceInfo) SliceRouteInfo(td *TrafficDescriptor) *SliceRouteInfo {
	if td == nil || td.RouteBindType() == RouteBindInvalid {
		return nil
	}
	if e, ok := nsi.routes[td.Key()]; ok {
		return e.sri
	}
	return nil
}

// TrafficDescriptors lists the cached descriptors in their total order.
func (nsi *NetworkSliceInfo) TrafficDescriptors() []*TrafficDescriptor {
	tds := make([]*TrafficDescriptor, 0, len(nsi.routes))
	for _, e := range nsi.routes {
		tds = append(tds, e.td)
	}
	slices.SortFunc(tds, (*TrafficDescriptor).Compare)
	return tds
}

func (nsi *NetworkSliceInfo) RemoveTrafficDescriptor(td *TrafficDescriptor) {
	delete(nsi.routes, td.Key())
}

func (nsi *NetworkSliceInfo) HasSliceRouteInfos() bool { return len(nsi.routes) != 0 }

func (nsi *NetworkSliceInfo) IsBindCompleted(uid int, fqdnIps *FqdnIps, td *TrafficDescriptor) bool {
	if td == nil {
		return true
	}
	e, ok := nsi.routes[td.Key()]
	if !ok {
		return false
	}
	return e.sri.IsBindCompleted(uid, fqdnIps, td.RouteBindType())
}

func (nsi *NetworkSliceInfo) ClearUsedUids() {
	for _, e := range nsi.routes {
		e.sri.ClearUsedUids()
	}
}

func (nsi *NetworkSliceInfo) ClearUids() {
	for _, e := range nsi.routes {
		e.sri.ClearUids()
	}
}

func (nsi *NetworkSliceInfo) Uids(td *TrafficDescriptor) []int {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		return sri.Uids()
	}
	return nil
}

func (nsi *NetworkSliceInfo) AddUid(uid int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.AddUid(uid)
	}
}

func (nsi *NetworkSliceInfo) AddUids(uids []int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		for _, uid := range uids {
			sri.AddUid(uid)
		}
	}
}

func (nsi *NetworkSliceInfo) RemoveUid(uid int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.RemoveUid(uid)
	}
}

// ReplaceUids swaps the uid list for uids. An empty replacement is ignored.
func (nsi *NetworkSliceInfo) ReplaceUids(td *TrafficDescriptor, uids []int) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.SetUids(uids)
	}
}

func (nsi *NetworkSliceInfo) UsedUids(td *TrafficDescriptor) []int {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		return sri.UsedUids()
	}
	return nil
}

func (nsi *NetworkSliceInfo) AddUsedUid(uid int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.AddUsedUid(uid)
	}
}

func (nsi *NetworkSliceInfo) AddUsedUids(uids []int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		for _, uid := range uids {
			sri.AddUsedUid(uid)
		}
	}
}

func (nsi *NetworkSliceInfo) RemoveUsedUid(uid int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.RemoveUsedUid(uid)
	}
}

func (nsi *NetworkSliceInfo) IsInUsedUids(uid int, td *TrafficDescriptor) bool {
	sri := nsi.SliceRouteInfo(td)
	return sri != nil && sri.IsInUsedUids(uid)
}

func (nsi *NetworkSliceInfo) IsUsedUidEmpty(td *TrafficDescriptor) bool {
	sri := nsi.SliceRouteInfo(td)
	return sri == nil || len(sri.usedUids) == 0
}

func (nsi *NetworkSliceInfo) SignedUids(td *TrafficDescriptor) []int {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		return sri.SignedUids()
	}
	return nil
}

func (nsi *NetworkSliceInfo) AddSignedUid(uid int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.AddSignedUid(uid)
	}
}

func (nsi *NetworkSliceInfo) RemoveSignedUid(uid int, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.RemoveSignedUid(uid)
	}
}

// FqdnIps returns a copy of the addresses accumulated for td, nil when td
// is not cached.
func (nsi *NetworkSliceInfo) FqdnIps(td *TrafficDescriptor) *FqdnIps {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		return sri.FqdnIps()
	}
	return nil
}

func (nsi *NetworkSliceInfo) SetFqdnIps(fqdnIps *FqdnIps, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.SetFqdnIps(fqdnIps)
	}
}

func (nsi *NetworkSliceInfo) MergeFqdnIps(fqdnIps *FqdnIps, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.MergeFqdnIps(fqdnIps)
	}
}

func (nsi *NetworkSliceInfo) WaitingFqdnIps(td *TrafficDescriptor) []*FqdnIps {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		return sri.WaitingFqdnIps()
	}
	return nil
}

func (nsi *NetworkSliceInfo) AppendWaitingFqdnIps(fqdnIps *FqdnIps, td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.AppendWaitingFqdnIps(fqdnIps)
	}
}

func (nsi *NetworkSliceInfo) ClearWaitingFqdnIps(td *TrafficDescriptor) {
	if sri := nsi.SliceRouteInfo(td); sri != nil {
		sri.ClearWaitingFqdnIps()
	}
}
