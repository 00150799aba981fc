// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"slices"
	"strconv"
	"strings"
)

// SliceRouteInfo tracks what has been bound for one traffic descriptor on
// one slice. Uid lists keep insertion order and hold no duplicates.
type SliceRouteInfo struct {
	uids           []int
	usedUids       []int
	signedUids     []int
	fqdnIps        *FqdnIps
	waitingFqdnIps []*FqdnIps
}

func NewSliceRouteInfo() *SliceRouteInfo {
	return &SliceRouteInfo{fqdnIps: &FqdnIps{}}
}

func addUnique(list []int, uid int) []int {
	if slices.Contains(list, uid) {
		return list
	}
	return append(list, uid)
}

func removeValue(list []int, uid int) []int {
	if i := slices.Index(list, uid); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

func (sri *SliceRouteInfo) Uids() []int { return slices.Clone(sri.uids) }

func (sri *SliceRouteInfo) UsedUids() []int { return slices.Clone(sri.usedUids) }

func (sri *SliceRouteInfo) SignedUids() []int { return slices.Clone(sri.signedUids) }

func (sri *SliceRouteInfo) AddUid(uid int) {
	sri.uids = addUnique(sri.uids, uid)
}

func (sri *SliceRouteInfo) RemoveUid(uid int) {
	sri.uids = removeValue(sri.uids, uid)
}

func (sri *SliceRouteInfo) ClearUids() {
	sri.uids = nil
}

// SetUids replaces the uid list. An empty set leaves the list untouched.
func (sri *SliceRouteInfo) SetUids(uids []int) {
	if len(uids) == 0 {
		return
	}
	sri.uids = nil
	for _, uid := range uids {
		sri.uids = addUnique(sri.uids, uid)
	}
}

func (sri *SliceRouteInfo) UidsStr() string {
	var sb strings.Builder
	for _, uid := range sri.uids {
		sb.WriteString(strconv.Itoa(uid))
		sb.WriteString(SEPARATOR)
	}
	return sb.String()
}

func (sri *SliceRouteInfo) AddUsedUid(uid int) {
	sri.usedUids = addUnique(sri.usedUids, uid)
}

func (sri *SliceRouteInfo) RemoveUsedUid(uid int) {
	sri.usedUids = removeValue(sri.usedUids, uid)
}

func (sri *SliceRouteInfo) ClearUsedUids() {
	sri.usedUids = nil
}

func (sri *SliceRouteInfo) IsInUsedUids(uid int) bool {
	return slices.Contains(sri.usedUids, uid)
}

// AddSignedUid records a pre-authorised uid. A signed uid is always also
// an active uid.
func (sri *SliceRouteInfo) AddSignedUid(uid int) {
	sri.signedUids = addUnique(sri.signedUids, uid)
	sri.uids = addUnique(sri.uids, uid)
}

func (sri *SliceRouteInfo) RemoveSignedUid(uid int) {
	sri.signedUids = removeValue(sri.signedUids, uid)
}

func (sri *SliceRouteInfo) FqdnIps() *FqdnIps { return sri.fqdnIps.Clone() }

func (sri *SliceRouteInfo) SetFqdnIps(fqdnIps *FqdnIps) {
	sri.fqdnIps = fqdnIps.Clone()
	if sri.fqdnIps == nil {
		sri.fqdnIps = &FqdnIps{}
	}
}

func (sri *SliceRouteInfo) MergeFqdnIps(fqdnIps *FqdnIps) {
	sri.fqdnIps.Merge(fqdnIps)
}

func (sri *SliceRouteInfo) WaitingFqdnIps() []*FqdnIps {
	waiting := make([]*FqdnIps, 0, len(sri.waitingFqdnIps))
	for _, f := range sri.waitingFqdnIps {
		waiting = append(waiting, f.Clone())
	}
	return waiting
}

// AppendWaitingFqdnIps queues addresses that arrived before the slice
// network came up. The queue is replayed in arrival order.
func (sri *SliceRouteInfo) AppendWaitingFqdnIps(fqdnIps *FqdnIps) {
	if fqdnIps.IsEmpty() {
		return
	}
	sri.waitingFqdnIps = append(sri.waitingFqdnIps, fqdnIps.Clone())
}

func (sri *SliceRouteInfo) ClearWaitingFqdnIps() {
	sri.waitingFqdnIps = nil
}

func (sri *SliceRouteInfo) IsUidBindCompleted(uid int) bool {
	return slices.Contains(sri.usedUids, uid)
}

func (sri *SliceRouteInfo) IsNoNewFqdnIp(fqdnIps *FqdnIps) bool {
	return sri.fqdnIps.NewIps(fqdnIps).IsEmpty()
}

// IsBindCompleted reports whether binding uid and fqdnIps would send
// nothing new to the kernel.
func (sri *SliceRouteInfo) IsBindCompleted(uid int, fqdnIps *FqdnIps, bindType RouteBindType) bool {
	switch bindType {
	case RouteBindUid:
		return sri.IsUidBindCompleted(uid)
	case RouteBindIp:
		return sri.IsNoNewFqdnIp(fqdnIps)
	case RouteBindUidIp:
		return sri.IsUidBindCompleted(uid) && sri.IsNoNewFqdnIp(fqdnIps)
	default:
		return true
	}
}
