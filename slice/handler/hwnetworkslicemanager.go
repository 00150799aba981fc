// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"maps"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/omec-project/slicemanager/kernel/message"
	"github.com/omec-project/slicemanager/logger"
)

// Keys of the slice parameters attached to a network request
const (
	PARA_DNN              = "dnn"
	PARA_SNSSAI           = "snssai"
	PARA_SSCMODE          = "sscmode"
	PARA_PDU_SESSION_TYPE = "pdusessiontype"
	PARA_ROUTE_BITMAP     = "routebitmap"
)

// HwNetworkSliceManager owns the slice pool. It is driven only from the
// slice event handler goroutine.
type HwNetworkSliceManager struct {
	nsm     *NetworkSliceManager
	netConn NetConnClient
	bundles BundleResolver

	nrSliceSupported bool
	requestTimeout   time.Duration

	networkSliceInfos   []*context.NetworkSliceInfo
	networkSliceCounter atomic.Int32

	isReady             bool
	isUrspAvailable     bool
	hasMatchAllSlice    bool
	isMatchAllRequested bool
	isMatchRequesting   bool

	whiteListForOsAppId  []context.OsAppId
	whiteListForDnn      []string
	whiteListForFqdn     []string
	whiteListForCct      []string
	cooperativeApps      []string
	activeTriggeringApps []string

	networkSliceParas map[context.NetCap]map[string]string
}

func newHwNetworkSliceManager(nsm *NetworkSliceManager, cfg *factory.Configuration, deps Deps) *HwNetworkSliceManager {
	hw := &HwNetworkSliceManager{
		nsm:                  nsm,
		netConn:              deps.NetConn,
		bundles:              deps.Bundles,
		nrSliceSupported:     cfg.NrSliceSupported,
		requestTimeout:       cfg.GetRequestNetworkTimeout(),
		cooperativeApps:      slices.Clone(cfg.CooperativeApps),
		activeTriggeringApps: slices.Clone(cfg.ActiveTriggeringApps),
		networkSliceParas:    make(map[context.NetCap]map[string]string),
	}
	hw.GetTrafficDescriptorWhiteList(cfg.WhiteList)
	return hw
}

func (hw *HwNetworkSliceManager) Init() {
	if !hw.nrSliceSupported {
		logger.SliceLog.Infoln("nr slice is not supported")
		return
	}
	hw.InitNetworkSliceInfos()
}

// InitNetworkSliceInfos creates one free slot per slice capability.
func (hw *HwNetworkSliceManager) InitNetworkSliceInfos() {
	hw.networkSliceInfos = make([]*context.NetworkSliceInfo, 0, len(context.SliceNetCaps))
	for _, netCap := range context.SliceNetCaps {
		hw.networkSliceInfos = append(hw.networkSliceInfos, context.NewNetworkSliceInfo(netCap))
	}
	hw.networkSliceCounter.Store(0)
}

// NetworkSliceCounter is the number of occupied slots. It is safe to read
// from any goroutine.
func (hw *HwNetworkSliceManager) NetworkSliceCounter() int {
	return int(hw.networkSliceCounter.Load())
}

func splitList(s string) []string {
	var values []string
	for _, v := range strings.Split(s, context.SEPARATOR) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// GetTrafficDescriptorWhiteList loads the white lists. An empty list in
// whiteList keeps the current one.
func (hw *HwNetworkSliceManager) GetTrafficDescriptorWhiteList(whiteList factory.WhiteList) {
	if values := splitList(whiteList.OsAppIds); len(values) != 0 {
		hw.whiteListForOsAppId = hw.whiteListForOsAppId[:0]
		for _, v := range values {
			hw.whiteListForOsAppId = append(hw.whiteListForOsAppId, context.ParseOsAppId(v))
		}
	}
	if values := splitList(whiteList.Dnns); len(values) != 0 {
		hw.whiteListForDnn = values
	}
	if values := splitList(whiteList.Fqdns); len(values) != 0 {
		hw.whiteListForFqdn = values
	}
	if values := splitList(whiteList.Ccts); len(values) != 0 {
		hw.whiteListForCct = values
	}
	logger.SliceLog.Debugf("white lists: %d app ids, %d dnns, %d fqdns, %d ccts", len(hw.whiteListForOsAppId),
		len(hw.whiteListForDnn), len(hw.whiteListForFqdn), len(hw.whiteListForCct))
}

// HandleUrspChanged resets every slot for a new URSP table and, when the
// update carries a match-all descriptor, reserves and requests the match-all
// slice.
func (hw *HwNetworkSliceManager) HandleUrspChanged(data map[string]string) {
	if !hw.nrSliceSupported {
		logger.SliceLog.Infoln("ursp changed, current environment cannot match slices")
		return
	}
	if len(data) == 0 {
		logger.SliceLog.Warnln("ursp changed without data")
		return
	}
	hw.isReady = false
	hw.SetUrspAvailable(true)
	hw.CleanEnvironment()
	rsd := context.MakeRouteSelectionDescriptor(data)
	hw.isReady = true
	hw.TryToActivateSliceForForegroundApp()
	if !rsd.IsMatchAll() {
		hw.hasMatchAllSlice = false
		return
	}
	hw.hasMatchAllSlice = true
	nsi := hw.getNetworkSliceInfoByParaNull()
	if nsi == nil {
		logger.SliceLog.Warnln("no free slot for the match-all slice")
		return
	}
	nsi.SetRouteSelectionDescriptor(rsd)
	nsi.SetTempTrafficDescriptor(context.NewTrafficDescriptorBuilder().
		SetRouteBitmap(context.MakeTrafficDescriptor(data).RouteBitmap()).
		Build())
	hw.networkSliceCounter.Add(1)

	logger.SliceLog.Infoln("match-all slice starts to activate")
	if !hw.isCanRequestNetwork() {
		logger.SliceLog.Infoln("ursp changed, can not request network")
		return
	}
	hw.isMatchRequesting = true
	hw.requestNetwork(context.INVALID_UID, nsi)
}

func (hw *HwNetworkSliceManager) HandleIpReport(data map[string]string) {
	if len(data) == 0 {
		return
	}
	uid, err := strconv.Atoi(data[message.KeyUid])
	if err != nil {
		logger.SliceLog.Warnf("ip report with invalid uid %q: %+v", data[message.KeyUid], err)
		return
	}
	hw.RequestNetworkSliceForIp(uid, data[message.KeyIp], data[message.KeyProtocolId],
		data[message.KeyRemotePort])
}

func (hw *HwNetworkSliceManager) TryToActivateSliceForForegroundApp() {
	uid := hw.nsm.ForegroundAppUid()
	if uid == context.INVALID_UID {
		return
	}
	packageName, err := hw.bundles.GetBundleNameForUid(uid)
	if err != nil {
		logger.SliceLog.Warnf("foreground uid %d: %+v", uid, err)
		return
	}
	if packageName == context.SCENEBOARD_BUNDLE {
		return
	}
	logger.SliceLog.Infof("try to activate slice for foreground app %s (uid %d)", packageName, uid)
	hw.RequestNetworkSliceForPackageName(uid, packageName)
}

func (hw *HwNetworkSliceManager) RequestNetworkSliceForPackageName(uid int, packageName string) {
	if !hw.isCanMatchNetworkSlices() {
		logger.SliceLog.Infoln("request slice, current environment cannot match slices")
		return
	}
	if !hw.IsNeedToRequestSliceForAppIdAuto(packageName) {
		logger.SliceLog.Debugf("no need to request slice for uid %d", uid)
		return
	}
	td := context.NewTrafficDescriptorBuilder().SetUid(uid).Build()
	hw.RequestNetwork(uid, hw.RequestNetworkSlice(td))
}

func (hw *HwNetworkSliceManager) RequestNetworkSliceForFqdn(uid int, fqdn string, addrs []netip.Addr) {
	if !hw.isCanMatchNetworkSlices() {
		logger.SliceLog.Debugln("request slice, current environment cannot match slices")
		return
	}
	if len(addrs) == 0 {
		logger.SliceLog.Debugf("no address for fqdn %s", fqdn)
		return
	}
	if !hw.IsNeedToRequestSliceForFqdnAuto(fqdn, uid) {
		logger.SliceLog.Debugf("no need to request slice for fqdn %s uid %d", fqdn, uid)
		return
	}
	td := context.NewTrafficDescriptorBuilder().
		SetUid(uid).
		SetFqdn(fqdn).
		SetFqdnIps(context.NewFqdnIps(addrs...)).
		Build()
	hw.RequestNetwork(uid, hw.RequestNetworkSlice(td))
}

func (hw *HwNetworkSliceManager) RequestNetworkSliceForIp(uid int, ip, protocolId, remotePort string) {
	if !hw.isCanMatchNetworkSlices() {
		logger.SliceLog.Debugln("request slice, current environment cannot match slices")
		return
	}
	td := context.NewTrafficDescriptorBuilder().
		SetUid(uid).
		SetIp(ip).
		SetProtocolId(protocolId).
		SetRemotePort(remotePort).
		Build()
	hw.RequestNetwork(uid, hw.RequestNetworkSlice(td))
}

// RequestNetworkSliceForNetworkCap serves an application network request
// carrying a dnn or a connection capability. The request is kept alive by
// the caller, so a slice that is already up is requested again.
func (hw *HwNetworkSliceManager) RequestNetworkSliceForNetworkCap(uid int, dnn string, cct int) {
	if !hw.isCanMatchNetworkSlices() {
		logger.SliceLog.Debugln("request slice, current environment cannot match slices")
		return
	}
	if dnn == "" && cct == context.CCT_INVALID {
		logger.SliceLog.Debugf("network request of uid %d without dnn or cct", uid)
		return
	}
	if dnn != "" && !hw.IsNeedToRequestSliceForDnnAuto(dnn, uid) {
		logger.SliceLog.Debugf("no need to request slice for dnn %s uid %d", dnn, uid)
		return
	}
	if cct != context.CCT_INVALID && !hw.IsNeedToRequestSliceForCctAuto(cct, uid) {
		logger.SliceLog.Debugf("no need to request slice for cct %d uid %d", cct, uid)
		return
	}
	td := context.NewTrafficDescriptorBuilder().
		SetUid(uid).
		SetDnn(dnn).
		SetCct(cct).
		SetNeedToCreateRequest(true).
		Build()
	hw.RequestNetwork(uid, hw.RequestNetworkSlice(td))
}

// RequestNetworkSlice resolves td to a route selection descriptor and
// returns the slot a network request has to be issued for, or nil.
func (hw *HwNetworkSliceManager) RequestNetworkSlice(td *context.TrafficDescriptor) *context.NetworkSliceInfo {
	if td == nil {
		return nil
	}
	result, ok := hw.nsm.GetRouteSelectionDescriptorByAppDescriptor(hw.FillNetworkSliceRequest(td))
	if !ok || len(result) == 0 {
		logger.SliceLog.Infof("no network slice for uid %d", td.Uid())
		return nil
	}

	rsd := context.MakeRouteSelectionDescriptor(result)
	tds := context.MakeTrafficDescriptor(result)
	if requestAgain := hw.getNetworkSliceInfoByParaRsd(rsd); requestAgain != nil {
		return hw.HandleRsdRequestAgain(requestAgain, td, tds)
	}
	if hw.isUpToToplimit() {
		logger.SliceLog.Infof("already %d network slices, do not request uid %d", context.MAX_NETWORK_SLICE, td.Uid())
		return nil
	}
	nsi := hw.getNetworkSliceInfoByParaNull()
	if nsi == nil {
		return nil
	}
	nsi.SetRouteSelectionDescriptor(rsd)
	nsi.CacheTrafficDescriptors(tds)
	nsi.SetTempTrafficDescriptor(tds)
	hw.networkSliceCounter.Add(1)
	if tds.IsMatchFqdn() {
		nsi.SetFqdnIps(td.FqdnIps(), tds)
	}
	logger.SliceLog.Infof("%s reserved for %s", nsi.NetCap(), rsd)
	return nsi
}

func requestAgainResult(nsi *context.NetworkSliceInfo, requestTd *context.TrafficDescriptor) *context.NetworkSliceInfo {
	if requestTd.IsNeedToCreateRequest() {
		requestTd.SetRequestAgain(true)
		return nsi
	}
	return nil
}

// HandleRsdRequestAgain handles a request resolving to a slice that already
// holds a slot.
func (hw *HwNetworkSliceManager) HandleRsdRequestAgain(requestAgain *context.NetworkSliceInfo,
	requestTd, tdsInUrsp *context.TrafficDescriptor,
) *context.NetworkSliceInfo {
	if requestAgain == nil || requestTd == nil {
		return nil
	}
	sri := requestAgain.SliceRouteInfo(tdsInUrsp)
	if sri == nil {
		return hw.HandleMultipleUrspFirstBind(requestAgain, requestTd, tdsInUrsp)
	}

	uid := requestTd.Uid()
	if tdsInUrsp.IsIpTriad() || requestAgain.IsBindCompleted(uid, requestTd.FqdnIps(), tdsInUrsp) {
		// used uids are cleared on unbind all, record the uid again
		if tdsInUrsp.IsUidRouteBindType() {
			sri.AddUsedUid(uid)
		}
		logger.SliceLog.Debugf("%s already bound uid %d", requestAgain.NetCap(), uid)
		return requestAgainResult(requestAgain, requestTd)
	}
	if requestAgain.NetId() == context.INVALID_NET_ID {
		return hw.HandleInvalidNetwork(requestAgain, tdsInUrsp, requestTd)
	}
	err := hw.BindNetworkSliceProcessToNetworkForRequestAgain(uid, requestAgain, requestTd.FqdnIps(), tdsInUrsp)
	if err == nil && tdsInUrsp.IsUidRouteBindType() {
		hw.TryAddSignedUid(uid, tdsInUrsp, requestAgain)
	}
	logger.SliceLog.Infof("no need to request %s again for uid %d, bind result: %v", requestAgain.NetCap(), uid, err)
	return requestAgainResult(requestAgain, requestTd)
}

// HandleMultipleUrspFirstBind binds a second URSP traffic descriptor that
// resolved to an already reserved slice.
func (hw *HwNetworkSliceManager) HandleMultipleUrspFirstBind(requestAgain *context.NetworkSliceInfo,
	requestTd, tdsInUrsp *context.TrafficDescriptor,
) *context.NetworkSliceInfo {
	if requestAgain == nil || requestTd == nil || tdsInUrsp == nil {
		return nil
	}
	requestAgain.CacheTrafficDescriptors(tdsInUrsp)
	triggerActivationUids := []int{requestTd.Uid()}
	hw.TryAddSignedUid(requestTd.Uid(), tdsInUrsp, requestAgain)
	if tdsInUrsp.IsMatchFqdn() {
		requestAgain.SetFqdnIps(requestTd.FqdnIps(), tdsInUrsp)
	}
	if err := hw.bindAllTrafficDescriptor(requestTd.Uid(), triggerActivationUids, requestAgain,
		tdsInUrsp); err != nil {
		logger.SliceLog.Debugf("first bind on %s deferred: %+v", requestAgain.NetCap(), err)
	}
	return requestAgainResult(requestAgain, requestTd)
}

// HandleInvalidNetwork queues the new FQDN addresses of a request whose
// slice network is still activating.
func (hw *HwNetworkSliceManager) HandleInvalidNetwork(requestAgain *context.NetworkSliceInfo,
	tdsInUrsp, requestTd *context.TrafficDescriptor,
) *context.NetworkSliceInfo {
	if requestAgain == nil || tdsInUrsp == nil || requestTd == nil {
		return nil
	}
	if fqdnIps := requestAgain.FqdnIps(tdsInUrsp); fqdnIps != nil {
		requestAgain.AppendWaitingFqdnIps(fqdnIps.NewIps(requestTd.FqdnIps()), tdsInUrsp)
	}
	return requestAgainResult(requestAgain, requestTd)
}

func (hw *HwNetworkSliceManager) TryAddSignedUid(uid int, tds *context.TrafficDescriptor, nsi *context.NetworkSliceInfo) {
	if tds == nil || nsi == nil {
		return
	}
	packageName, err := hw.bundles.GetBundleNameForUid(uid)
	if err != nil {
		logger.SliceLog.Debugf("uid %d: %+v", uid, err)
		return
	}
	if !tds.IsActiveTriggeringApp(packageName, hw.activeTriggeringApps) {
		return
	}
	nsi.AddSignedUid(uid, tds)
}

// FillNetworkSliceRequest builds the policy lookup key for td.
func (hw *HwNetworkSliceManager) FillNetworkSliceRequest(td *context.TrafficDescriptor) context.AppDescriptor {
	packageName, err := hw.bundles.GetBundleNameForUid(td.Uid())
	if err != nil {
		logger.SliceLog.Debugf("no bundle for uid %d: %+v", td.Uid(), err)
	}
	ad := context.NewAppDescriptor(td, packageName)
	logger.SliceLog.Debugf("slice request: %+v", ad)
	return ad
}

// GetAutoUids resolves the app ids of tds to the uids they run as.
func (hw *HwNetworkSliceManager) GetAutoUids(tds *context.TrafficDescriptor) []int {
	if tds == nil {
		return nil
	}
	return hw.GetUidsFromAppIds(tds.AppIds())
}

func (hw *HwNetworkSliceManager) GetUidsFromAppIds(originAppIds string) []int {
	var uids []int
	for _, appId := range hw.GetAppIdsWithoutOsId(originAppIds) {
		uid := hw.bundles.GetUidByBundleName(appId)
		if uid == context.INVALID_UID {
			logger.SliceLog.Debugf("app %s is not installed", appId)
			continue
		}
		uids = append(uids, uid)
	}
	slices.Sort(uids)
	return slices.Compact(uids)
}

func (hw *HwNetworkSliceManager) GetAppIdsWithoutOsId(originAppIds string) []string {
	var appIds []string
	for _, osIdAppId := range splitList(originAppIds) {
		appId := context.ParseOsAppId(osIdAppId).AppId
		if appId == "" {
			continue
		}
		appIds = append(appIds, appId)
	}
	slices.Sort(appIds)
	return slices.Compact(appIds)
}

// RequestNetwork asks the connectivity layer for the slice network of nsi
// on behalf of uid.
func (hw *HwNetworkSliceManager) RequestNetwork(uid int, nsi *context.NetworkSliceInfo) {
	if uid == context.INVALID_UID || nsi == nil {
		return
	}
	hw.requestNetwork(uid, nsi)
}

func (hw *HwNetworkSliceManager) requestNetwork(uid int, nsi *context.NetworkSliceInfo) {
	if nsi == nil {
		return
	}
	rsd := nsi.RouteSelectionDescriptor()
	tds := nsi.TempTrafficDescriptor()
	if rsd == nil || tds == nil {
		logger.SliceLog.Warnf("request network on %s without descriptors", nsi.NetCap())
		return
	}
	request := nsi.NetworkRequest()
	hw.FillRsdIntoNetworkRequest(request, rsd, tds)

	callback := nsi.NetworkCallback()
	if callback == nil {
		callback = context.NewNetworkCallback(nsi.NetCap())
	}
	callback.NetCap = request.NetCap
	if uid != context.INVALID_UID {
		callback.CacheRequestUid(uid)
	}
	callback.Uid = uid
	if request.RequestId == 0 {
		request.RequestId = context.SliceMgrSelf().AllocateRequestId()
	}
	if err := hw.netConn.RequestNetConnection(request, callback, hw.requestTimeout); err != nil {
		logger.SliceLog.Errorf("request %s failed: %+v", nsi.NetCap(), err)
	}
	nsi.SetNetworkCallback(callback)
}

func (hw *HwNetworkSliceManager) FillRsdIntoNetworkRequest(request *context.NetworkRequest,
	rsd *context.RouteSelectionDescriptor, tds *context.TrafficDescriptor,
) {
	paras := map[string]string{
		PARA_DNN:              rsd.Dnn,
		PARA_SNSSAI:           rsd.SNssai,
		PARA_SSCMODE:          strconv.Itoa(int(rsd.SscMode)),
		PARA_PDU_SESSION_TYPE: strconv.Itoa(rsd.PduSessionType),
		PARA_ROUTE_BITMAP:     strconv.Itoa(int(tds.RouteBitmap())),
	}
	logger.SliceLog.Debugf("%s request parameters: %v", request.NetCap, paras)
	request.Paras = paras
	hw.networkSliceParas[request.NetCap] = maps.Clone(paras)
}

// GetRSDByNetCap returns the slice parameters last requested for netCap.
func (hw *HwNetworkSliceManager) GetRSDByNetCap(netCap context.NetCap) map[string]string {
	return maps.Clone(hw.networkSliceParas[netCap])
}

func (hw *HwNetworkSliceManager) isUpToToplimit() bool {
	return hw.networkSliceCounter.Load() >= context.MAX_NETWORK_SLICE
}

func (hw *HwNetworkSliceManager) isCanRequestNetwork() bool {
	return hw.nsm.IsCanRequestNetwork()
}

func (hw *HwNetworkSliceManager) isCanMatchNetworkSlices() bool {
	return hw.isEnvironmentReady() && hw.isCanRequestNetwork()
}

func (hw *HwNetworkSliceManager) isEnvironmentReady() bool {
	return hw.nrSliceSupported && hw.isReady && hw.IsUrspAvailable()
}

func (hw *HwNetworkSliceManager) IsUrspAvailable() bool {
	return hw.isUrspAvailable
}

func (hw *HwNetworkSliceManager) SetUrspAvailable(urspAvailable bool) {
	hw.isUrspAvailable = urspAvailable
}

func (hw *HwNetworkSliceManager) IsNeedToRequestSliceForAppIdAuto(appId string) bool {
	if hw.isCooperativePackage(appId) {
		return false
	}
	id := context.ParseOsAppId(context.REQUEST_NETWORK_SLICE_OS_ID + appId)
	return slices.Contains(hw.whiteListForOsAppId, id)
}

func (hw *HwNetworkSliceManager) IsNeedToRequestSliceForFqdnAuto(fqdn string, uid int) bool {
	if hw.isCooperativeApp(uid) {
		return false
	}
	return slices.Contains(hw.whiteListForFqdn, fqdn)
}

func (hw *HwNetworkSliceManager) IsNeedToRequestSliceForDnnAuto(dnn string, uid int) bool {
	if hw.isCooperativeApp(uid) {
		return false
	}
	return slices.Contains(hw.whiteListForDnn, dnn)
}

func (hw *HwNetworkSliceManager) IsNeedToRequestSliceForCctAuto(cct int, uid int) bool {
	if hw.isCooperativeApp(uid) {
		return false
	}
	return slices.Contains(hw.whiteListForCct, strconv.Itoa(cct))
}

func (hw *HwNetworkSliceManager) isCooperativeApp(uid int) bool {
	packageName, err := hw.bundles.GetBundleNameForUid(uid)
	if err != nil {
		return false
	}
	return hw.isCooperativePackage(packageName)
}

func (hw *HwNetworkSliceManager) isCooperativePackage(packageName string) bool {
	return slices.Contains(hw.cooperativeApps, packageName)
}

// CleanEnvironment drops every binding and frees every slot.
func (hw *HwNetworkSliceManager) CleanEnvironment() {
	if err := hw.UnbindAllRoute(); err != nil {
		logger.SliceLog.Errorf("unbind all route failed: %+v", err)
	}
	for _, nsi := range hw.networkSliceInfos {
		if callback := nsi.NetworkCallback(); callback != nil {
			if err := hw.netConn.UnregisterNetConnCallback(callback); err != nil {
				logger.SliceLog.Warnf("unregister %s callback failed: %+v", callback.NetCap, err)
			}
			hw.OnNetworkLost(callback.NetCap, callback.NetId)
		}
		clearSlot(nsi)
	}
	hw.InitNetworkSliceInfos()
	clear(hw.networkSliceParas)
	logger.SliceLog.Infoln("clean environment done")
}

func clearSlot(nsi *context.NetworkSliceInfo) {
	context.SliceMgrSelf().FreeRequestId(nsi.NetworkRequest().RequestId)
	nsi.Clear()
}

func (hw *HwNetworkSliceManager) RestoreSliceEnvironment() {
	hw.RequestMatchAllSlice()
	hw.TryToActivateSliceForForegroundApp()
}

func (hw *HwNetworkSliceManager) RequestMatchAllSlice() {
	if !hw.hasMatchAllSlice || hw.isMatchAllRequested || hw.isMatchRequesting {
		return
	}
	if !hw.isCanRequestNetwork() {
		return
	}
	hw.isMatchRequesting = true
	for _, nsi := range hw.networkSliceInfos {
		if nsi.IsMatchAll() {
			hw.requestNetwork(context.INVALID_UID, nsi)
			break
		}
	}
}

// OnNetworkAvailable binds every traffic descriptor of the slot to the new
// network and replays the FQDN addresses queued while it was activating.
func (hw *HwNetworkSliceManager) OnNetworkAvailable(netCap context.NetCap, netId int) {
	nsi := hw.getNetworkSliceInfoByParaNetCap(netCap)
	if nsi == nil || nsi.IsRightNetworkSliceNull() {
		logger.SliceLog.Infof("%s available without a reserved slot", netCap)
		return
	}
	nsi.SetNetId(netId)
	if nsi.IsMatchAll() {
		logger.SliceLog.Infoln("match-all slice available, no route to bind")
		hw.isMatchAllRequested = true
		hw.isMatchRequesting = false
		return
	}
	callback := nsi.NetworkCallback()
	if callback == nil {
		logger.SliceLog.Warnf("%s available without callback", netCap)
		return
	}
	callback.NetId = netId
	uid := callback.Uid
	triggerActivationUids := callback.RequestUids()
	for _, td := range nsi.TrafficDescriptors() {
		if err := hw.bindAllTrafficDescriptor(uid, triggerActivationUids, nsi, td); err != nil {
			logger.SliceLog.Warnf("bind %s to net %d failed: %+v", td, netId, err)
		}
		for _, fqdnIps := range nsi.WaitingFqdnIps(td) {
			if err := hw.BindNetworkSliceProcessToNetwork(uid, triggerActivationUids, nsi, fqdnIps, td); err != nil {
				logger.SliceLog.Warnf("bind waiting %s to net %d failed: %+v", fqdnIps, netId, err)
			}
		}
		nsi.ClearWaitingFqdnIps(td)
	}
	logger.SliceLog.Infof("%s bound to net %d", netCap, netId)
}

func (hw *HwNetworkSliceManager) OnNetworkLost(netCap context.NetCap, netId int) {
	nsi := hw.getNetworkSliceInfoByParaNetCap(netCap)
	if nsi == nil {
		return
	}
	if nsi.IsMatchAll() {
		hw.isMatchAllRequested = false
		hw.isMatchRequesting = false
		return
	}
	nsi.ClearUsedUids()
	if nsi.NetId() == context.INVALID_NET_ID {
		return
	}
	if err := hw.UnbindSingleNetId(nsi.NetId()); err != nil {
		logger.SliceLog.Errorf("unbind net %d failed: %+v", nsi.NetId(), err)
	}
	logger.SliceLog.Infof("%s lost (net %d)", netCap, netId)
}

func (hw *HwNetworkSliceManager) OnNetworkUnavailable(netCap context.NetCap) {
	nsi := hw.getNetworkSliceInfoByParaNetCap(netCap)
	if nsi == nil {
		return
	}
	if nsi.IsMatchAll() {
		hw.isMatchAllRequested = false
		hw.isMatchRequesting = false
		return
	}
	hw.RecoveryNetworkSlice(nsi)
}

// RecoveryNetworkSlice frees a slot whose network could not be brought up.
func (hw *HwNetworkSliceManager) RecoveryNetworkSlice(nsi *context.NetworkSliceInfo) {
	if nsi == nil {
		return
	}
	if nsi.NetId() != context.INVALID_NET_ID {
		if err := hw.UnbindSingleNetId(nsi.NetId()); err != nil {
			logger.SliceLog.Errorf("unbind net %d failed: %+v", nsi.NetId(), err)
		}
	}
	if callback := nsi.NetworkCallback(); callback != nil {
		if err := hw.netConn.UnregisterNetConnCallback(callback); err != nil {
			logger.SliceLog.Warnf("unregister %s callback failed: %+v", callback.NetCap, err)
		}
	}
	hw.CleanRouteSelectionDescriptor(nsi)
	clearSlot(nsi)
}

// ReleaseNetworkSlice tears a slot down once nothing is bound to it.
func (hw *HwNetworkSliceManager) ReleaseNetworkSlice(nsi *context.NetworkSliceInfo) {
	if nsi == nil {
		return
	}
	if nsi.NetId() != context.INVALID_NET_ID {
		if err := hw.UnbindSingleNetId(nsi.NetId()); err != nil {
			logger.SliceLog.Errorf("unbind net %d failed: %+v", nsi.NetId(), err)
		}
	}
	if callback := nsi.NetworkCallback(); callback != nil {
		if err := hw.netConn.UnregisterNetConnCallback(callback); err != nil {
			logger.SliceLog.Warnf("unregister %s callback failed: %+v", callback.NetCap, err)
		}
		hw.OnNetworkLost(callback.NetCap, callback.NetId)
	}
	hw.CleanRouteSelectionDescriptor(nsi)
	clearSlot(nsi)
	logger.SliceLog.Infof("%s released", nsi.NetCap())
}

func (hw *HwNetworkSliceManager) CleanRouteSelectionDescriptor(nsi *context.NetworkSliceInfo) {
	if nsi == nil || nsi.IsRightNetworkSliceNull() {
		return
	}
	nsi.SetRouteSelectionDescriptor(nil)
	hw.networkSliceCounter.Add(-1)
}

// UnbindProcessToNetworkForSingleUid drops uid from every uid typed traffic
// descriptor of nsi. A descriptor left without used uids is removed and a
// slot left without descriptors is released.
func (hw *HwNetworkSliceManager) UnbindProcessToNetworkForSingleUid(uid int, nsi *context.NetworkSliceInfo,
	isNeedToRemoveUid bool,
) {
	if nsi == nil || nsi.IsRightNetworkSliceNull() || nsi.IsMatchAll() {
		return
	}
	for _, td := range nsi.TrafficDescriptors() {
		if !td.IsUidRouteBindType() || !nsi.IsInUsedUids(uid, td) {
			continue
		}
		if isNeedToRemoveUid {
			if nsi.NetId() != context.INVALID_NET_ID {
				if err := hw.UnbindUids(nsi.NetId(), strconv.Itoa(uid), td.UrspPrecedence()); err != nil {
					logger.SliceLog.Errorf("unbind uid %d failed: %+v", uid, err)
				}
			}
			nsi.RemoveUid(uid, td)
		}
		nsi.RemoveUsedUid(uid, td)
		nsi.RemoveSignedUid(uid, td)
		if callback := nsi.NetworkCallback(); callback != nil {
			callback.RemoveRequestUid(uid)
		}
		if nsi.IsUsedUidEmpty(td) {
			nsi.RemoveTrafficDescriptor(td)
		}
	}
	if !nsi.HasSliceRouteInfos() {
		hw.ReleaseNetworkSlice(nsi)
	}
}

func (hw *HwNetworkSliceManager) HandleUidRemoved(packageName string) {
	if !hw.nrSliceSupported {
		return
	}
	for _, uid := range hw.bundles.GetUidsByBundleName(packageName) {
		for _, nsi := range hw.networkSliceInfos {
			hw.UnbindProcessToNetworkForSingleUid(uid, nsi, true)
		}
	}
}

func (hw *HwNetworkSliceManager) HandleUidGone(uid int) {
	if !hw.nrSliceSupported {
		return
	}
	for _, nsi := range hw.networkSliceInfos {
		hw.UnbindProcessToNetworkForSingleUid(uid, nsi, false)
	}
}

func (hw *HwNetworkSliceManager) ReleaseNetworkSliceByApp(uid int) {
	for _, nsi := range hw.networkSliceInfos {
		for _, td := range nsi.TrafficDescriptors() {
			if slices.Contains(nsi.Uids(td), uid) {
				hw.UnbindProcessToNetworkForSingleUid(uid, nsi, true)
				break
			}
		}
	}
}

// OnWifiNetworkStateChanged moves bound traffic off the slices while wifi
// carries it and back once wifi is gone.
func (hw *HwNetworkSliceManager) OnWifiNetworkStateChanged(isWifiConnect bool) {
	if isWifiConnect {
		hw.UnbindAllProcessToNetwork()
		return
	}
	hw.RestoreSliceEnvironment()
	hw.BindAllProcessToNetwork()
}

// DumpNetworkSliceInfos snapshots the pool.
func (hw *HwNetworkSliceManager) DumpNetworkSliceInfos() []context.SliceDump {
	dumps := make([]context.SliceDump, 0, len(hw.networkSliceInfos))
	for _, nsi := range hw.networkSliceInfos {
		dump := context.SliceDump{
			NetCap: nsi.NetCap().String(),
			NetId:  nsi.NetId(),
		}
		if rsd := nsi.RouteSelectionDescriptor(); rsd != nil {
			cp := *rsd
			dump.RouteSelection = &cp
		}
		for _, td := range nsi.TrafficDescriptors() {
			tdDump := context.TrafficDescriptorDump{
				Descriptor: td.String(),
				BindType:   td.RouteBindType().String(),
				Uids:       nsi.Uids(td),
				UsedUids:   nsi.UsedUids(td),
				SignedUids: nsi.SignedUids(td),
			}
			fqdnIps := nsi.FqdnIps(td)
			for _, addr := range append(fqdnIps.Ipv4Addrs(), fqdnIps.Ipv6Addrs()...) {
				tdDump.FqdnIps = append(tdDump.FqdnIps, addr.String())
			}
			dump.TrafficDescriptors = append(dump.TrafficDescriptors, tdDump)
		}
		logger.SliceLog.Debugf("%s net %d %s", dump.NetCap, dump.NetId, dump.RouteSelection)
		dumps = append(dumps, dump)
	}
	return dumps
}

func (hw *HwNetworkSliceManager) getNetworkSliceInfoByParaRsd(rsd *context.RouteSelectionDescriptor) *context.NetworkSliceInfo {
	for _, nsi := range hw.networkSliceInfos {
		if nsi.IsRightNetworkSliceRsd(rsd) {
			return nsi
		}
	}
	return nil
}

func (hw *HwNetworkSliceManager) getNetworkSliceInfoByParaNull() *context.NetworkSliceInfo {
	for _, nsi := range hw.networkSliceInfos {
		if nsi.IsRightNetworkSliceNull() {
			return nsi
		}
	}
	return nil
}

func (hw *HwNetworkSliceManager) getNetworkSliceInfoByParaNetCap(netCap context.NetCap) *context.NetworkSliceInfo {
	for _, nsi := range hw.networkSliceInfos {
		if nsi.IsRightNetworkSliceNetCap(netCap) {
			return nsi
		}
	}
	return nil
}
