// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/omec-project/slicemanager/logger"
)

// Keys of a URSP policy result map
const (
	TDS_ROUTE_BITMAP         = "routeBitmap"
	TDS_URSP_PRECEDENCE      = "urspPrecedence"
	TDS_APPIDS               = "appIds"
	TDS_IPV4_NUM             = "ipv4Num"
	TDS_IPV4_ADDRANDMASK     = "ipv4AddrAndMask"
	TDS_IPV6_NUM             = "ipv6Num"
	TDS_IPV6_ADDRANDPREFIX   = "ipv6AddrAndPrefix"
	TDS_PROTOCOLIDS          = "protocolIds"
	TDS_REMOTEPORTS          = "remotePorts"
	RSD_SSCMODE              = "sscMode"
	RSD_DNN                  = "dnn"
	RSD_SNSSAI               = "sNssai"
	RSD_PDU_SESSION_TYPE     = "pduSessionType"
	RSD_ROUTE_BITMAP         = TDS_ROUTE_BITMAP
	REQ_APPID                = "appId"
	REQ_DNN                  = "dnn"
	REQ_FQDN                 = "fqdn"
	REQ_IP                   = "ip"
	REQ_PROTOCOL_ID          = "protocolId"
	REQ_REMOTE_PORT          = "remotePort"
	REQ_CONNECTION_CAPBILITY = "connectionCapability"
)

// TrafficDescriptor is the match key a slice binding applies to. It is
// built once through TrafficDescriptorBuilder; only the request-again flag
// changes afterwards.
type TrafficDescriptor struct {
	urspPrecedence        uint8
	appIds                string
	ipv4Num               uint8
	ipv4AddrAndMask       []byte
	ipv6Num               uint8
	ipv6AddrAndPrefix     []byte
	protocolIds           string
	remotePorts           string
	routeBitmap           uint8
	uid                   int
	dnn                   string
	fqdn                  string
	ip                    string
	protocolId            string
	remotePort            string
	fqdnIps               *FqdnIps
	cct                   int
	isNeedToCreateRequest bool

	isIpTriad        bool
	isMatchFqdn      bool
	isMatchDnn       bool
	hasAvailableUrsp bool
	isMatchCct       bool
	routeBindType    RouteBindType

	key            string
	isRequestAgain bool
}

type TrafficDescriptorBuilder struct {
	td TrafficDescriptor
}

func NewTrafficDescriptorBuilder() *TrafficDescriptorBuilder {
	return &TrafficDescriptorBuilder{td: TrafficDescriptor{uid: INVALID_UID, cct: CCT_INVALID}}
}

func (b *TrafficDescriptorBuilder) SetUrspPrecedence(v uint8) *TrafficDescriptorBuilder {
	b.td.urspPrecedence = v
	return b
}

// SetAppIds stores v as an "id," list. Blank ids are dropped.
func (b *TrafficDescriptorBuilder) SetAppIds(v string) *TrafficDescriptorBuilder {
	var sb strings.Builder
	for _, id := range strings.Split(v, SEPARATOR) {
		if id = strings.TrimSpace(id); id != "" {
			sb.WriteString(id)
			sb.WriteString(SEPARATOR)
		}
	}
	b.td.appIds = sb.String()
	return b
}

func (b *TrafficDescriptorBuilder) SetIpv4Num(v uint8) *TrafficDescriptorBuilder {
	b.td.ipv4Num = v
	return b
}

func (b *TrafficDescriptorBuilder) SetIpv4AddrAndMask(v []byte) *TrafficDescriptorBuilder {
	b.td.ipv4AddrAndMask = slices.Clone(v)
	return b
}

func (b *TrafficDescriptorBuilder) SetIpv6Num(v uint8) *TrafficDescriptorBuilder {
	b.td.ipv6Num = v
	return b
}

func (b *TrafficDescriptorBuilder) SetIpv6AddrAndPrefix(v []byte) *TrafficDescriptorBuilder {
	b.td.ipv6AddrAndPrefix = slices.Clone(v)
	return b
}

func (b *TrafficDescriptorBuilder) SetProtocolIds(v string) *TrafficDescriptorBuilder {
	b.td.protocolIds = v
	return b
}

func (b *TrafficDescriptorBuilder) SetRemotePorts(v string) *TrafficDescriptorBuilder {
	b.td.remotePorts = v
	return b
}

func (b *TrafficDescriptorBuilder) SetRouteBitmap(v uint8) *TrafficDescriptorBuilder {
	b.td.routeBitmap = v
	return b
}

func (b *TrafficDescriptorBuilder) SetUid(v int) *TrafficDescriptorBuilder {
	b.td.uid = v
	return b
}

func (b *TrafficDescriptorBuilder) SetDnn(v string) *TrafficDescriptorBuilder {
	b.td.dnn = v
	return b
}

func (b *TrafficDescriptorBuilder) SetFqdn(v string) *TrafficDescriptorBuilder {
	b.td.fqdn = v
	return b
}

func (b *TrafficDescriptorBuilder) SetIp(v string) *TrafficDescriptorBuilder {
	b.td.ip = v
	return b
}

func (b *TrafficDescriptorBuilder) SetProtocolId(v string) *TrafficDescriptorBuilder {
	b.td.protocolId = v
	return b
}

func (b *TrafficDescriptorBuilder) SetRemotePort(v string) *TrafficDescriptorBuilder {
	b.td.remotePort = v
	return b
}

func (b *TrafficDescriptorBuilder) SetFqdnIps(v *FqdnIps) *TrafficDescriptorBuilder {
	b.td.fqdnIps = v.Clone()
	return b
}

func (b *TrafficDescriptorBuilder) SetCct(v int) *TrafficDescriptorBuilder {
	b.td.cct = v
	return b
}

func (b *TrafficDescriptorBuilder) SetNeedToCreateRequest(v bool) *TrafficDescriptorBuilder {
	b.td.isNeedToCreateRequest = v
	return b
}

func (b *TrafficDescriptorBuilder) Build() *TrafficDescriptor {
	td := b.td
	td.ipv4AddrAndMask = slices.Clone(b.td.ipv4AddrAndMask)
	td.ipv6AddrAndPrefix = slices.Clone(b.td.ipv6AddrAndPrefix)
	td.fqdnIps = b.td.fqdnIps.Clone()

	td.isIpTriad = td.ipv4Num != 0 || td.ipv6Num != 0
	td.isMatchDnn = td.routeBitmap&MATCH_DNN != 0
	td.isMatchFqdn = td.routeBitmap&MATCH_FQDN != 0
	td.hasAvailableUrsp = td.routeBitmap&MATCH_AVAILABLE != 0
	td.isMatchCct = td.routeBitmap&MATCH_CCT != 0

	hasAppIds := td.appIds != "" || td.isMatchDnn
	hasIps := td.isIpTriad || td.isMatchFqdn
	switch {
	case hasAppIds && hasIps:
		td.routeBindType = RouteBindUidIp
	case hasAppIds:
		td.routeBindType = RouteBindUid
	case hasIps:
		td.routeBindType = RouteBindIp
	default:
		td.routeBindType = RouteBindInvalid
	}
	td.key = td.buildKey()
	return &td
}

// MakeTrafficDescriptor builds the policy side traffic descriptor from a
// URSP result map. Missing or malformed numbers fall back to zero.
func MakeTrafficDescriptor(data map[string]string) *TrafficDescriptor {
	return NewTrafficDescriptorBuilder().
		SetAppIds(data[TDS_APPIDS]).
		SetUrspPrecedence(mapUint8(data, TDS_URSP_PRECEDENCE)).
		SetIpv4Num(mapUint8(data, TDS_IPV4_NUM)).
		SetIpv4AddrAndMask([]byte(data[TDS_IPV4_ADDRANDMASK])).
		SetIpv6Num(mapUint8(data, TDS_IPV6_NUM)).
		SetIpv6AddrAndPrefix([]byte(data[TDS_IPV6_ADDRANDPREFIX])).
		SetProtocolIds(data[TDS_PROTOCOLIDS]).
		SetRemotePorts(data[TDS_REMOTEPORTS]).
		SetRouteBitmap(mapUint8(data, TDS_ROUTE_BITMAP)).
		Build()
}

func mapUint8(data map[string]string, key string) uint8 {
	s, ok := data[key]
	if !ok || s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.CtxLog.Warnf("invalid %s value %q: %+v", key, s, err)
		return 0
	}
	return uint8(v)
}

func mapInt(data map[string]string, key string, def int) int {
	s, ok := data[key]
	if !ok || s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.CtxLog.Warnf("invalid %s value %q: %+v", key, s, err)
		return def
	}
	return v
}

func (td *TrafficDescriptor) UrspPrecedence() uint8 { return td.urspPrecedence }
func (td *TrafficDescriptor) AppIds() string { return td.appIds }
func (td *TrafficDescriptor) Ipv4Num() uint8 { return td.ipv4Num }
func (td *TrafficDescriptor) Ipv4AddrAndMask() []byte { return slices.Clone(td.ipv4AddrAndMask) }
func (td *TrafficDescriptor) Ipv6Num() uint8 { return td.ipv6Num }
func (td *TrafficDescriptor) Ipv6AddrAndPrefix() []byte { return slices.Clone(td.ipv6AddrAndPrefix) }
func (td *TrafficDescriptor) ProtocolIds() string { return td.protocolIds }
func (td *TrafficDescriptor) RemotePorts() string { return td.remotePorts }
func (td *TrafficDescriptor) RouteBitmap() uint8 { return td.routeBitmap }
func (td *TrafficDescriptor) Uid() int { return td.uid }
func (td *TrafficDescriptor) Dnn() string { return td.dnn }
func (td *TrafficDescriptor) Fqdn() string { return td.fqdn }
func (td *TrafficDescriptor) Ip() string { return td.ip }
func (td *TrafficDescriptor) ProtocolId() string { return td.protocolId }
func (td *TrafficDescriptor) RemotePort() string { return td.remotePort }
func (td *TrafficDescriptor) FqdnIps() *FqdnIps { return td.fqdnIps.Clone() }
func (td *TrafficDescriptor) Cct() int { return td.cct }
func (td *TrafficDescriptor) IsNeedToCreateRequest() bool {
	return td.isNeedToCreateRequest
}

func (td *TrafficDescriptor) IsIpTriad() bool { return td.isIpTriad }
func (td *TrafficDescriptor) IsMatchFqdn() bool { return td.isMatchFqdn }
func (td *TrafficDescriptor) IsMatchDnn() bool { return td.isMatchDnn }
func (td *TrafficDescriptor) HasAvailableUrsp() bool { return td.hasAvailableUrsp }
func (td *TrafficDescriptor) IsMatchCct() bool { return td.isMatchCct }
func (td *TrafficDescriptor) RouteBindType() RouteBindType { return td.routeBindType }
func (td *TrafficDescriptor) IsMatchNetworkCap() bool { return td.isMatchDnn || td.isMatchCct }
func (td *TrafficDescriptor) IsRequestAgain() bool { return td.isRequestAgain }
func (td *TrafficDescriptor) SetRequestAgain(requestAgain bool) { td.isRequestAgain = requestAgain }

func (td *TrafficDescriptor) IsUidRouteBindType() bool {
	return td.routeBindType == RouteBindUid || td.routeBindType == RouteBindUidIp
}

// IsActiveTriggeringApp reports whether the package is allowed to trigger
// slice activation on its own.
func (td *TrafficDescriptor) IsActiveTriggeringApp(packageName string, activeTriggeringApps []string) bool {
	return packageName != "" && slices.Contains(activeTriggeringApps, packageName)
}

// Key is a canonical encoding of every field except the request-again
// flag. Two descriptors are equal iff their keys are equal.
func (td *TrafficDescriptor) Key() string {
	return td.key
}

func (td *TrafficDescriptor) Equal(other *TrafficDescriptor) bool {
	if td == nil || other == nil {
		return td == other
	}
	return td.key == other.key
}

// Compare orders descriptors totally and stably by their canonical key.
func (td *TrafficDescriptor) Compare(other *TrafficDescriptor) int {
	return strings.Compare(td.key, other.key)
}

func (td *TrafficDescriptor) buildKey() string {
	return fmt.Sprintf("%d|%q|%d|%x|%d|%x|%q|%q|%d|%d|%q|%q|%q|%q|%q|%s|%d|%t",
		td.urspPrecedence, td.appIds, td.ipv4Num, td.ipv4AddrAndMask, td.ipv6Num, td.ipv6AddrAndPrefix,
		td.protocolIds, td.remotePorts, td.routeBitmap, td.uid, td.dnn, td.fqdn, td.ip, td.protocolId,
		td.remotePort, td.fqdnIps.String(), td.cct, td.isNeedToCreateRequest)
}

func (td *TrafficDescriptor) String() string {
	return fmt.Sprintf("TrafficDescriptor{precedence: %d, appIds: %s, ipv4Num: %d, ipv6Num: %d, "+
		"protocolIds: %s, remotePorts: %s, routeBitmap: %d, uid: %d, dnn: %s, fqdn: %s, ip: %s, cct: %d, "+
		"bindType: %s}", td.urspPrecedence, td.appIds, td.ipv4Num, td.ipv6Num, td.protocolIds,
		td.remotePorts, td.routeBitmap, td.uid, td.dnn, td.fqdn, td.ip, td.cct, td.routeBindType)
}
