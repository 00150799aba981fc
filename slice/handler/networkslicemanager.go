// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/omec-project/slicemanager/kernel/message"
	"github.com/omec-project/slicemanager/logger"
)

// NETWORK_SLICE_PARA_FORBIDDEN_TIMEOUT is how long a route selection
// descriptor that failed to activate stays out of slice selection.
const NETWORK_SLICE_PARA_FORBIDDEN_TIMEOUT = 12 * time.Minute

// ForbiddenRouteDescriptor is a route selection descriptor whose activation
// failed at Time.
type ForbiddenRouteDescriptor struct {
	Dnn            string
	SNssai         string
	PduSessionType int
	SscMode        uint8
	Time           time.Time
}

type environment struct {
	airModeOn             bool
	wifiConn              bool
	vpnMode               bool
	screenOn              bool
	saState               bool
	defaultDataOnMainCard bool
	mobileDataEnabled     bool
}

// NetworkSliceManager tracks the device environment, gates slice selection
// on it and encodes bind requests for the kernel.
type NetworkSliceManager struct {
	hw     *HwNetworkSliceManager
	kernel KernelSender
	policy PolicySelector
	post   func(evt context.SliceEvt) bool

	plmn             string
	nrSliceSupported bool

	env                  environment
	foregroundAppUid     int
	isIpParaReportEnable bool

	normalForbiddenRules []ForbiddenRouteDescriptor
	forbiddenTimer       *context.Timer
	forbiddenTimeout     time.Duration
}

func NewNetworkSliceManager(cfg *factory.Configuration, deps Deps) *NetworkSliceManager {
	nsm := &NetworkSliceManager{
		kernel:           deps.Kernel,
		policy:           deps.Policy,
		post:             deps.Post,
		plmn:             cfg.Plmn,
		nrSliceSupported: cfg.NrSliceSupported,
		env: environment{
			screenOn:              cfg.Environment.ScreenOn,
			saState:               cfg.Environment.SaState,
			defaultDataOnMainCard: cfg.Environment.DefaultDataOnMainCard,
			mobileDataEnabled:     cfg.Environment.MobileDataEnabled,
		},
		foregroundAppUid: context.INVALID_UID,
		forbiddenTimeout: NETWORK_SLICE_PARA_FORBIDDEN_TIMEOUT,
	}
	nsm.hw = newHwNetworkSliceManager(nsm, cfg, deps)
	return nsm
}

func (nsm *NetworkSliceManager) Init() {
	nsm.hw.Init()
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) HwNetworkSliceManager() *HwNetworkSliceManager {
	return nsm.hw
}

func (nsm *NetworkSliceManager) Stop() {
	nsm.forbiddenTimer.Stop()
	nsm.forbiddenTimer = nil
}

func (nsm *NetworkSliceManager) ForegroundAppUid() int {
	return nsm.foregroundAppUid
}

func (nsm *NetworkSliceManager) HandleForegroundAppChanged(uid int, bundleName string, state int, focused bool) {
	nsm.foregroundAppUid = uid
	logger.SliceLog.Infof("foreground app changed uid %d bundle %s state %d", uid, bundleName, state)
	if bundleName == context.SCENEBOARD_BUNDLE {
		return
	}
	switch state {
	case context.APP_STATE_FOREGROUND:
		if focused {
			nsm.hw.RequestNetworkSliceForPackageName(uid, bundleName)
		}
	case context.APP_STATE_BACKGROUND:
		nsm.hw.ReleaseNetworkSliceByApp(uid)
	case context.APP_STATE_TERMINATED:
		nsm.hw.HandleUidGone(uid)
	}
}

func (nsm *NetworkSliceManager) HandleUrspChanged(data map[string]string) {
	nsm.hw.HandleUrspChanged(data)
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) HandleAirModeChanged(on bool) {
	nsm.env.airModeOn = on
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) HandleWifiConnChanged(state int) {
	last := nsm.env.wifiConn
	switch state {
	case context.WIFI_STATE_CONNECTED:
		nsm.env.wifiConn = true
	case context.WIFI_STATE_DISCONNECTED:
		nsm.env.wifiConn = false
	}
	if last != nsm.env.wifiConn {
		nsm.hw.OnWifiNetworkStateChanged(nsm.env.wifiConn)
	}
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) HandleVpnModeChanged(on bool) {
	nsm.env.vpnMode = on
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) HandleScreenStateChanged(on bool) {
	nsm.env.screenOn = on
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) HandleSaStateChanged(on bool) {
	nsm.env.saState = on
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) SetDefaultDataOnMainCard(onMainCard bool) {
	nsm.env.defaultDataOnMainCard = onMainCard
	nsm.IpParaReportControl()
}

func (nsm *NetworkSliceManager) SetMobileDataEnabled(enabled bool) {
	nsm.env.mobileDataEnabled = enabled
}

// HandleNetworkRequested serves an application asking for a slice network
// by dnn or connection capability.
func (nsm *NetworkSliceManager) HandleNetworkRequested(uid int, dnn string, cct int) {
	nsm.hw.RequestNetworkSliceForNetworkCap(uid, dnn, cct)
}

// GetRSDByNetCap returns the slice parameters last requested on netCap.
func (nsm *NetworkSliceManager) GetRSDByNetCap(netCap context.NetCap) map[string]string {
	return nsm.hw.GetRSDByNetCap(netCap)
}

// HandleNetworkActivateResult puts the route selection descriptor of a
// failed activation on the forbidden list.
func (nsm *NetworkSliceManager) HandleNetworkActivateResult(result int, dnn, sNssai string,
	pduSessionType int, sscMode uint8,
) {
	if result != context.NETWORK_ACTIVATE_RESULT_NORMAL_FAIL {
		return
	}
	rule := ForbiddenRouteDescriptor{
		Dnn:            dnn,
		SNssai:         sNssai,
		PduSessionType: pduSessionType,
		SscMode:        sscMode,
		Time:           time.Now(),
	}
	if len(nsm.normalForbiddenRules) == 0 {
		nsm.startNetworkParaForbiddenTimer(nsm.forbiddenTimeout)
	}
	nsm.normalForbiddenRules = append(nsm.normalForbiddenRules, rule)
	logger.SliceLog.Infof("forbid dnn %s snssai %s for %v", dnn, sNssai, nsm.forbiddenTimeout)
}

// ProcessNetworkParaForbiddenTimeOut expires the oldest forbidden rule and
// arms the timer for the next one.
func (nsm *NetworkSliceManager) ProcessNetworkParaForbiddenTimeOut() {
	switch len(nsm.normalForbiddenRules) {
	case 0:
		return
	case 1:
		nsm.normalForbiddenRules = nsm.normalForbiddenRules[:0]
		nsm.forbiddenTimer = nil
	default:
		nsm.startNetworkParaForbiddenTimer(
			nsm.normalForbiddenRules[1].Time.Sub(nsm.normalForbiddenRules[0].Time))
		nsm.normalForbiddenRules = nsm.normalForbiddenRules[1:]
	}
}

func (nsm *NetworkSliceManager) startNetworkParaForbiddenTimer(d time.Duration) {
	nsm.forbiddenTimer.Stop()
	nsm.forbiddenTimer = context.NewOneShotTimer(d, func() {
		if nsm.post != nil {
			nsm.post(context.NewNetworkParaForbiddenTimeoutEvt())
		}
	})
}

func (nsm *NetworkSliceManager) ForbiddenRules() []ForbiddenRouteDescriptor {
	return append([]ForbiddenRouteDescriptor(nil), nsm.normalForbiddenRules...)
}

func (nsm *NetworkSliceManager) isRouteRuleInForbiddenList(rsd *context.RouteSelectionDescriptor) bool {
	for _, rule := range nsm.normalForbiddenRules {
		if rsd.Dnn == rule.Dnn && rsd.SNssai == rule.SNssai &&
			rsd.PduSessionType == rule.PduSessionType && rsd.SscMode == rule.SscMode {
			return true
		}
	}
	return false
}

// HandleIpRpt handles an ip report record from the kernel.
func (nsm *NetworkSliceManager) HandleIpRpt(data []byte) {
	report, err := message.ParseIpReport(data)
	if err != nil {
		logger.SliceLog.Errorf("ip report: %+v", err)
		return
	}
	ad := context.AppDescriptor{
		Uid:        int(report.Uid),
		ProtocolId: fmt.Sprint(report.ProtocolId),
		RemotePort: fmt.Sprint(report.RemotePort),
	}
	if report.Addr.Is4() {
		ad.Ipv4Addr = report.IpString()
	} else {
		ad.Ipv6Addr = report.IpString()
	}
	logger.SliceLog.Debugf("ip report %+v", ad)
	if !nsm.policy.IsIpThreeTuplesInWhiteList(nsm.plmn, ad) {
		logger.SliceLog.Debugln("ip three tuples not in white list")
		return
	}
	nsm.hw.HandleIpReport(report.ToMap())
}

func (nsm *NetworkSliceManager) HandleDnsResult(uid int, fqdn string, addrs []netip.Addr) {
	nsm.hw.RequestNetworkSliceForFqdn(uid, fqdn, addrs)
}

func (nsm *NetworkSliceManager) HandleUidRemoved(bundleName string) {
	nsm.hw.HandleUidRemoved(bundleName)
}

func (nsm *NetworkSliceManager) OnNetworkAvailable(netCap context.NetCap, netId int) {
	nsm.hw.OnNetworkAvailable(netCap, netId)
}

func (nsm *NetworkSliceManager) OnNetworkLost(netCap context.NetCap, netId int) {
	nsm.hw.OnNetworkLost(netCap, netId)
}

func (nsm *NetworkSliceManager) OnNetworkUnavailable(netCap context.NetCap) {
	nsm.hw.OnNetworkUnavailable(netCap)
}

// BindProcessToNetworkByFullPara encodes a bind request and sends it to the
// kernel.
func (nsm *NetworkSliceManager) BindProcessToNetworkByFullPara(data map[string]string) error {
	para, err := message.NewRoutePara(data)
	if err != nil {
		return fmt.Errorf("bind request: %w", err)
	}
	logger.SliceLog.Infof("bind net %d precedence %d len %d uids %d ipv4 %d ipv6 %d", para.NetId,
		para.UrspPrecedence, para.Len, len(para.Uids), para.Ipv4Num(), para.Ipv6Num())
	b, err := para.Marshal()
	if err != nil {
		return fmt.Errorf("bind request: %w", err)
	}
	return nsm.kernel.SendDataToKernel(b)
}

// DeleteNetworkBindByFullPara encodes an unbind request and sends it to the
// kernel.
func (nsm *NetworkSliceManager) DeleteNetworkBindByFullPara(data map[string]string) error {
	para, err := message.NewDeletePara(data)
	if err != nil {
		return fmt.Errorf("unbind request: %w", err)
	}
	logger.SliceLog.Infof("unbind type %d net %d uids %v", para.DelType, para.NetId, para.Uids)
	b, err := para.Marshal()
	if err != nil {
		return fmt.Errorf("unbind request: %w", err)
	}
	return nsm.kernel.SendDataToKernel(b)
}

// IpParaReportControl turns kernel ip reports on while slices can be
// matched and off otherwise. Only transitions are sent.
func (nsm *NetworkSliceManager) IpParaReportControl() {
	isMeetConditions := nsm.IsMeetNetworkSliceConditions()
	if isMeetConditions == nsm.isIpParaReportEnable {
		return
	}
	if err := nsm.kernel.SendDataToKernel(message.BuildIpReportControl(isMeetConditions)); err != nil {
		logger.SliceLog.Errorf("send ip report control failed: %+v", err)
		return
	}
	nsm.isIpParaReportEnable = isMeetConditions
	logger.SliceLog.Infof("ip para report enabled: %t", isMeetConditions)
}

func (nsm *NetworkSliceManager) IsIpParaReportEnabled() bool {
	return nsm.isIpParaReportEnable
}

// GetRouteSelectionDescriptorByAppDescriptor runs slice selection for ad,
// skipping forbidden route selection descriptors.
func (nsm *NetworkSliceManager) GetRouteSelectionDescriptorByAppDescriptor(ad context.AppDescriptor) (
	map[string]string, bool,
) {
	if !nsm.IsMeetNetworkSliceConditions() {
		return nil, false
	}
	return nsm.policy.SliceNetworkSelection(nsm.plmn, ad, nsm.isRouteRuleInForbiddenList)
}

// GetRouteSelectionDescriptorByDNN returns the S-NSSAI and SSC mode the
// policy selects for dnn.
func (nsm *NetworkSliceManager) GetRouteSelectionDescriptorByDNN(dnn string) (string, uint8, bool) {
	result, ok := nsm.GetRouteSelectionDescriptorByAppDescriptor(context.AppDescriptor{
		Uid: context.INVALID_UID,
		Dnn: dnn,
	})
	if !ok {
		return "", 0, false
	}
	rsd := context.MakeRouteSelectionDescriptor(result)
	return rsd.SNssai, rsd.SscMode, true
}

func (nsm *NetworkSliceManager) IsMeetNetworkSliceConditions() bool {
	switch {
	case !nsm.nrSliceSupported:
		logger.SliceLog.Debugln("nr slices not supported")
	case !nsm.policy.HasAvailableRule():
		logger.SliceLog.Debugln("no available ursp rule")
	case !nsm.env.saState:
		logger.SliceLog.Debugln("rat is not 5G SA")
	case nsm.env.airModeOn:
		logger.SliceLog.Debugln("air plane mode on")
	case nsm.env.wifiConn:
		logger.SliceLog.Debugln("wifi connected")
	case !nsm.env.screenOn:
		logger.SliceLog.Debugln("screen off")
	case nsm.env.vpnMode:
		logger.SliceLog.Debugln("vpn on")
	case !nsm.env.defaultDataOnMainCard:
		logger.SliceLog.Debugln("default data not on main card")
	default:
		return true
	}
	return false
}

func (nsm *NetworkSliceManager) IsCanRequestNetwork() bool {
	return nsm.env.mobileDataEnabled && !nsm.env.airModeOn && !nsm.env.wifiConn &&
		nsm.env.saState && nsm.env.defaultDataOnMainCard && !nsm.env.vpnMode
}

func (nsm *NetworkSliceManager) DumpNetworkSliceInfos() []context.SliceDump {
	return nsm.hw.DumpNetworkSliceInfos()
}
