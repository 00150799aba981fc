// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/logger"
)

var sliceMgr *NetworkSliceManager

// SetNetworkSliceManager installs the manager events are applied to. It
// must be called before the slice event handler starts.
func SetNetworkSliceManager(nsm *NetworkSliceManager) {
	sliceMgr = nsm
}

func NetworkSliceMgr() *NetworkSliceManager {
	return sliceMgr
}

func HandleEvent(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("slice event handle")

	if sliceMgr == nil {
		logger.SliceLog.Errorln("slice manager is not initialized")
		return
	}

	switch sliceEvent.Type() {
	case context.KernelIpReport:
		HandleKernelIpReport(sliceEvent)
	case context.ForegroundAppChanged:
		HandleForegroundAppChanged(sliceEvent)
	case context.DnsResult:
		HandleDnsResult(sliceEvent)
	case context.UrspChanged:
		HandleUrspChanged(sliceEvent)
	case context.AirModeChanged:
		HandleAirModeChanged(sliceEvent)
	case context.WifiConnChanged:
		HandleWifiConnChanged(sliceEvent)
	case context.VpnModeChanged:
		HandleVpnModeChanged(sliceEvent)
	case context.ScreenStateChanged:
		HandleScreenStateChanged(sliceEvent)
	case context.SaStateChanged:
		HandleSaStateChanged(sliceEvent)
	case context.NetworkActivateResult:
		HandleNetworkActivateResult(sliceEvent)
	case context.NetworkParaForbiddenTimeout:
		HandleNetworkParaForbiddenTimeout(sliceEvent)
	case context.UidRemoved:
		HandleUidRemoved(sliceEvent)
	case context.NetworkAvailable:
		HandleNetworkAvailable(sliceEvent)
	case context.NetworkLost:
		HandleNetworkLost(sliceEvent)
	case context.NetworkUnavailable:
		HandleNetworkUnavailable(sliceEvent)
	case context.DumpSlices:
		HandleDumpSlices(sliceEvent)
	case context.NetworkRequested:
		HandleNetworkRequested(sliceEvent)
	case context.DefaultDataChanged:
		HandleDefaultDataChanged(sliceEvent)
	case context.MobileDataChanged:
		HandleMobileDataChanged(sliceEvent)
	case context.GetRsdByNetCap:
		HandleGetRsdByNetCap(sliceEvent)
	default:
		logger.SliceLog.Errorf("undefined slice event type")
		return
	}
}

func HandleKernelIpReport(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle KernelIpReport Event")

	kernelIpReportEvt := sliceEvent.(*context.KernelIpReportEvt)
	sliceMgr.HandleIpRpt(kernelIpReportEvt.Data)
}

func HandleForegroundAppChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle ForegroundAppChanged Event")

	evt := sliceEvent.(*context.ForegroundAppChangedEvt)
	sliceMgr.HandleForegroundAppChanged(evt.Uid, evt.BundleName, evt.State, evt.Focused)
}

func HandleDnsResult(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle DnsResult Event")

	dnsResultEvt := sliceEvent.(*context.DnsResultEvt)
	sliceMgr.HandleDnsResult(dnsResultEvt.Uid, dnsResultEvt.Fqdn, dnsResultEvt.Addrs)
}

func HandleUrspChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle UrspChanged Event")

	urspChangedEvt := sliceEvent.(*context.UrspChangedEvt)
	sliceMgr.HandleUrspChanged(urspChangedEvt.Data)
}

func HandleAirModeChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle AirModeChanged Event")

	sliceMgr.HandleAirModeChanged(sliceEvent.(*context.AirModeChangedEvt).On)
}

func HandleWifiConnChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle WifiConnChanged Event")

	sliceMgr.HandleWifiConnChanged(sliceEvent.(*context.WifiConnChangedEvt).State)
}

func HandleVpnModeChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle VpnModeChanged Event")

	sliceMgr.HandleVpnModeChanged(sliceEvent.(*context.VpnModeChangedEvt).On)
}

func HandleScreenStateChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle ScreenStateChanged Event")

	sliceMgr.HandleScreenStateChanged(sliceEvent.(*context.ScreenStateChangedEvt).On)
}

func HandleSaStateChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle SaStateChanged Event")

	sliceMgr.HandleSaStateChanged(sliceEvent.(*context.SaStateChangedEvt).On)
}

func HandleNetworkActivateResult(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle NetworkActivateResult Event")

	evt := sliceEvent.(*context.NetworkActivateResultEvt)
	sliceMgr.HandleNetworkActivateResult(evt.Result, evt.Dnn, evt.SNssai, evt.PduSessionType, evt.SscMode)
}

func HandleNetworkParaForbiddenTimeout(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle NetworkParaForbiddenTimeout Event")

	sliceMgr.ProcessNetworkParaForbiddenTimeOut()
}

func HandleUidRemoved(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle UidRemoved Event")

	uidRemovedEvt := sliceEvent.(*context.UidRemovedEvt)
	sliceMgr.HandleUidRemoved(uidRemovedEvt.BundleName)
}

func HandleNetworkAvailable(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle NetworkAvailable Event")

	evt := sliceEvent.(*context.NetworkAvailableEvt)
	sliceMgr.OnNetworkAvailable(evt.NetCap, evt.NetId)
}

func HandleNetworkLost(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle NetworkLost Event")

	evt := sliceEvent.(*context.NetworkLostEvt)
	sliceMgr.OnNetworkLost(evt.NetCap, evt.NetId)
}

func HandleNetworkUnavailable(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle NetworkUnavailable Event")

	sliceMgr.OnNetworkUnavailable(sliceEvent.(*context.NetworkUnavailableEvt).NetCap)
}

func HandleDumpSlices(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle DumpSlices Event")

	dumpSlicesEvt := sliceEvent.(*context.DumpSlicesEvt)
	select {
	case dumpSlicesEvt.Reply <- sliceMgr.DumpNetworkSliceInfos():
	default:
		logger.SliceLog.Warnln("dump reply dropped")
	}
}

func HandleNetworkRequested(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle NetworkRequested Event")

	evt := sliceEvent.(*context.NetworkRequestedEvt)
	sliceMgr.HandleNetworkRequested(evt.Uid, evt.Dnn, evt.Cct)
}

func HandleDefaultDataChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle DefaultDataChanged Event")

	sliceMgr.SetDefaultDataOnMainCard(sliceEvent.(*context.DefaultDataChangedEvt).OnMainCard)
}

func HandleMobileDataChanged(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle MobileDataChanged Event")

	sliceMgr.SetMobileDataEnabled(sliceEvent.(*context.MobileDataChangedEvt).On)
}

func HandleGetRsdByNetCap(sliceEvent context.SliceEvt) {
	logger.SliceLog.Debugln("handle GetRsdByNetCap Event")

	evt := sliceEvent.(*context.GetRsdByNetCapEvt)
	select {
	case evt.Reply <- sliceMgr.GetRSDByNetCap(evt.NetCap):
	default:
		logger.SliceLog.Warnln("rsd reply dropped")
	}
}
