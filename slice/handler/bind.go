// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"errors"
	"slices"
	"strconv"

	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/kernel/message"
	"github.com/omec-project/slicemanager/logger"
)

var (
	ErrInvalidBindParameter = errors.New("invalid bind parameter")
	ErrInvalidRouteBindType = errors.New("cannot bind invalid traffic descriptor")
)

func fillBindParas(netId int, urspPrecedence uint8, bindParas map[string]string) {
	bindParas[message.KeyNetId] = strconv.Itoa(netId)
	bindParas[message.KeyUrspPrecedence] = strconv.Itoa(int(urspPrecedence))
}

func fillUids(uids []int, bindParas map[string]string) {
	if len(uids) == 0 {
		return
	}
	var uidsStr string
	for _, uid := range uids {
		uidsStr += strconv.Itoa(uid) + context.SEPARATOR
	}
	bindParas[message.KeyUids] = uidsStr
}

// BindNetworkSliceProcessToNetwork binds td on the network of nsi. Uid typed
// descriptors bind every installed app of td plus the trigger uids, FQDN
// descriptors bind the addresses of fqdnIps not yet bound.
func (hw *HwNetworkSliceManager) BindNetworkSliceProcessToNetwork(uid int, triggerActivationUids []int,
	nsi *context.NetworkSliceInfo, fqdnIps *context.FqdnIps, td *context.TrafficDescriptor,
) error {
	if nsi == nil || nsi.NetId() == context.INVALID_NET_ID || td == nil {
		return ErrInvalidBindParameter
	}
	bindParas := make(map[string]string)
	fillBindParas(nsi.NetId(), td.UrspPrecedence(), bindParas)
	logger.SliceLog.Debugf("bind net %d uid %d precedence %d appIds %s", nsi.NetId(), uid,
		td.UrspPrecedence(), td.AppIds())
	switch td.RouteBindType() {
	case context.RouteBindUid:
		hw.FillUidBindParas(bindParas, td, triggerActivationUids, nsi, uid)
	case context.RouteBindIp:
		hw.FillIpBindParas(bindParas, td, fqdnIps, nsi)
	case context.RouteBindUidIp:
		hw.FillUidBindParas(bindParas, td, triggerActivationUids, nsi, uid)
		hw.FillIpBindParas(bindParas, td, fqdnIps, nsi)
	default:
		return ErrInvalidRouteBindType
	}
	return hw.BindProcessToNetwork(bindParas)
}

// BindNetworkSliceProcessToNetworkForRequestAgain adds a single uid to a
// slice that is already bound.
func (hw *HwNetworkSliceManager) BindNetworkSliceProcessToNetworkForRequestAgain(uid int,
	nsi *context.NetworkSliceInfo, fqdnIps *context.FqdnIps, td *context.TrafficDescriptor,
) error {
	if nsi == nil || nsi.NetId() == context.INVALID_NET_ID || td == nil {
		return ErrInvalidBindParameter
	}
	if nsi.IsMatchAll() {
		return nil
	}
	bindParas := make(map[string]string)
	fillBindParas(nsi.NetId(), td.UrspPrecedence(), bindParas)
	bindUid := false
	switch td.RouteBindType() {
	case context.RouteBindUid:
		fillUids([]int{uid}, bindParas)
		bindUid = true
	case context.RouteBindIp:
		hw.FillIpBindParas(bindParas, td, fqdnIps, nsi)
	case context.RouteBindUidIp:
		fillUids([]int{uid}, bindParas)
		bindUid = true
		hw.FillIpBindParas(bindParas, td, fqdnIps, nsi)
	default:
		return ErrInvalidRouteBindType
	}
	if err := hw.BindProcessToNetwork(bindParas); err != nil {
		return err
	}
	// the uid is recorded only once the kernel accepted it
	if bindUid {
		nsi.AddUid(uid, td)
		nsi.AddUsedUid(uid, td)
	}
	return nil
}

func (hw *HwNetworkSliceManager) FillUidBindParas(bindParas map[string]string, td *context.TrafficDescriptor,
	triggerActivationUids []int, nsi *context.NetworkSliceInfo, uid int,
) {
	if td.IsMatchNetworkCap() {
		fillUids(triggerActivationUids, bindParas)
		nsi.AddUids(triggerActivationUids, td)
		nsi.AddUsedUids(triggerActivationUids, td)
		return
	}
	autoUids := hw.GetAutoUids(td)
	allUids := append(slices.Clone(autoUids), nsi.SignedUids(td)...)
	slices.Sort(allUids)
	allUids = slices.Compact(allUids)
	logger.SliceLog.Debugf("bind %d auto uids, %d uids in total", len(autoUids), len(allUids))
	fillUids(allUids, bindParas)
	// signed uids stay part of the bound set
	nsi.ReplaceUids(td, allUids)
	if uid != context.INVALID_UID {
		nsi.AddUsedUid(uid, td)
		return
	}
	// a rebind keeps the triggering apps in use
	for _, triggerUid := range triggerActivationUids {
		if slices.Contains(allUids, triggerUid) {
			nsi.AddUsedUid(triggerUid, td)
		}
	}
}

func (hw *HwNetworkSliceManager) FillIpBindParas(bindParas map[string]string, td *context.TrafficDescriptor,
	fqdnIps *context.FqdnIps, nsi *context.NetworkSliceInfo,
) {
	if !td.IsMatchFqdn() {
		fillIpBindParasForIpTriad(bindParas, td)
		return
	}
	newFqdnIps := fqdnIps.Clone()
	if nsiFqdnIps := nsi.FqdnIps(td); nsiFqdnIps != nil {
		newFqdnIps = nsiFqdnIps.NewIps(fqdnIps)
		nsi.MergeFqdnIps(fqdnIps, td)
	} else {
		nsi.SetFqdnIps(fqdnIps, td)
	}
	fillIpBindParasForFqdn(bindParas, newFqdnIps)
}

func fillIpBindParasForFqdn(bindParas map[string]string, newFqdnIps *context.FqdnIps) {
	if len(bindParas) == 0 || newFqdnIps == nil || newFqdnIps.IsEmpty() {
		return
	}
	bindParas[message.KeyIpv4Num] = strconv.Itoa(newFqdnIps.Ipv4Num())
	bindParas[message.KeyIpv4AddrAndMask] = message.BytesToString(newFqdnIps.Ipv4AddrAndMask())
	bindParas[message.KeyIpv6Num] = strconv.Itoa(newFqdnIps.Ipv6Num())
	bindParas[message.KeyIpv6AddrAndPrefix] = message.BytesToString(newFqdnIps.Ipv6AddrAndPrefix())
	bindParas[message.KeyProtocolIds] = ""
	bindParas[message.KeyRemotePorts] = ""
}

func fillIpBindParasForIpTriad(bindParas map[string]string, td *context.TrafficDescriptor) {
	if len(bindParas) == 0 || td == nil {
		return
	}
	bindParas[message.KeyIpv4Num] = strconv.Itoa(int(td.Ipv4Num()))
	bindParas[message.KeyIpv4AddrAndMask] = message.BytesToString(td.Ipv4AddrAndMask())
	bindParas[message.KeyIpv6Num] = strconv.Itoa(int(td.Ipv6Num()))
	bindParas[message.KeyIpv6AddrAndPrefix] = message.BytesToString(td.Ipv6AddrAndPrefix())
	bindParas[message.KeyProtocolIds] = td.ProtocolIds()
	bindParas[message.KeyRemotePorts] = td.RemotePorts()
}

func hasBindTarget(bindParas map[string]string) bool {
	if bindParas[message.KeyUids] != "" {
		return true
	}
	for _, key := range []string{message.KeyIpv4Num, message.KeyIpv6Num} {
		if n, err := strconv.Atoi(bindParas[key]); err == nil && n > 0 {
			return true
		}
	}
	return false
}

// BindProcessToNetwork hands a bind request to the kernel. A request with
// neither uids nor addresses is dropped.
func (hw *HwNetworkSliceManager) BindProcessToNetwork(bindParas map[string]string) error {
	if !hasBindTarget(bindParas) {
		logger.SliceLog.Debugf("nothing to bind on net %s", bindParas[message.KeyNetId])
		return nil
	}
	if err := hw.nsm.BindProcessToNetworkByFullPara(bindParas); err != nil {
		logger.SliceLog.Errorf("bind process to network failed: %+v", err)
		return err
	}
	return nil
}

// bindAllTrafficDescriptor binds td from scratch. For FQDN descriptors the
// known addresses are forgotten first so the kernel receives all of them.
func (hw *HwNetworkSliceManager) bindAllTrafficDescriptor(uid int, triggerActivationUids []int,
	nsi *context.NetworkSliceInfo, td *context.TrafficDescriptor,
) error {
	if nsi == nil || nsi.NetId() == context.INVALID_NET_ID {
		return ErrInvalidBindParameter
	}
	fqdnIps := nsi.FqdnIps(td)
	if td.IsMatchFqdn() {
		nsi.SetFqdnIps(nil, td)
	}
	return hw.BindNetworkSliceProcessToNetwork(uid, triggerActivationUids, nsi, fqdnIps, td)
}

// BindAllProcessToNetwork rebinds every slice once wifi is gone.
func (hw *HwNetworkSliceManager) BindAllProcessToNetwork() {
	for _, nsi := range hw.networkSliceInfos {
		if nsi.IsRightNetworkSliceNull() || nsi.IsMatchAll() {
			continue
		}
		nsi.ClearUsedUids()
		callback := nsi.NetworkCallback()
		if callback == nil || nsi.NetId() == context.INVALID_NET_ID {
			continue
		}
		for _, td := range nsi.TrafficDescriptors() {
			// intercepted requests are not rebound
			if td.IsMatchNetworkCap() {
				continue
			}
			err := hw.bindAllTrafficDescriptor(context.INVALID_UID, callback.RequestUids(), nsi, td)
			logger.SliceLog.Infof("rebind %s on net %d, error: %v", td, nsi.NetId(), err)
		}
	}
}

// UnbindAllProcessToNetwork removes the uid bindings of every slice while
// wifi is connected. The slices themselves stay up.
func (hw *HwNetworkSliceManager) UnbindAllProcessToNetwork() {
	for _, nsi := range hw.networkSliceInfos {
		if nsi.IsRightNetworkSliceNull() || nsi.IsMatchAll() || nsi.NetId() == context.INVALID_NET_ID {
			continue
		}
		for _, td := range nsi.TrafficDescriptors() {
			if td.IsMatchNetworkCap() {
				continue
			}
			sri := nsi.SliceRouteInfo(td)
			if sri == nil {
				continue
			}
			if err := hw.UnbindUids(nsi.NetId(), sri.UidsStr(), td.UrspPrecedence()); err != nil {
				logger.SliceLog.Errorf("unbind uids of %s failed: %+v", td, err)
			}
		}
	}
}

func (hw *HwNetworkSliceManager) UnbindAllRoute() error {
	return hw.nsm.DeleteNetworkBindByFullPara(map[string]string{
		message.KeyNetId:   strconv.Itoa(int(message.DelBindAll)),
		message.KeyDelType: strconv.Itoa(int(message.DelBindAll)),
	})
}

func (hw *HwNetworkSliceManager) UnbindSingleNetId(netId int) error {
	return hw.nsm.DeleteNetworkBindByFullPara(map[string]string{
		message.KeyNetId:   strconv.Itoa(netId),
		message.KeyDelType: strconv.Itoa(int(message.DelBindNetId)),
	})
}

func (hw *HwNetworkSliceManager) UnbindUids(netId int, uids string, urspPrecedence uint8) error {
	return hw.nsm.DeleteNetworkBindByFullPara(map[string]string{
		message.KeyNetId:          strconv.Itoa(netId),
		message.KeyUids:           uids,
		message.KeyUrspPrecedence: strconv.Itoa(int(urspPrecedence)),
		message.KeyDelType:        strconv.Itoa(int(message.DelBindPrecedence)),
	})
}
