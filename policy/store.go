// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/omec-project/slicemanager/kernel/message"
	"github.com/omec-project/slicemanager/logger"
)

type portRange struct {
	start, end uint16
}

func (r portRange) contains(port uint16) bool {
	return port >= r.start && port <= r.end
}

// rule is a URSP rule compiled for matching.
type rule struct {
	precedence  uint8
	matchAll    bool
	appIds      []context.OsAppId
	dnns        []string
	fqdns       []string
	ipv4        []netip.Prefix
	ipv6        []netip.Prefix
	protocolIds []string
	remotePorts []string
	portRanges  []portRange
	ccts        []int
	rsds        []*context.RouteSelectionDescriptor
}

// Store holds the URSP rules of the home PLMN ordered by precedence.
type Store struct {
	mu    sync.RWMutex
	plmn  string
	rules []*rule
}

func NewStore(plmn string, rules []factory.UrspRule) *Store {
	s := &Store{plmn: plmn}
	s.Update(rules)
	return s
}

// Update replaces the rule table. Rules that fail to compile are skipped.
func (s *Store) Update(rules []factory.UrspRule) {
	compiled := make([]*rule, 0, len(rules))
	for i := range rules {
		r, err := compileRule(&rules[i])
		if err != nil {
			logger.PolicyLog.Warnf("skip ursp rule with precedence %d: %+v", rules[i].Precedence, err)
			continue
		}
		compiled = append(compiled, r)
	}
	slices.SortStableFunc(compiled, func(a, b *rule) int {
		return int(a.precedence) - int(b.precedence)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = compiled
	logger.PolicyLog.Infof("ursp table updated: %d rules", len(compiled))
}

func (s *Store) Plmn() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plmn
}

func (s *Store) HasAvailableRule() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules) != 0
}

func compileRule(u *factory.UrspRule) (*rule, error) {
	td := &u.TrafficDescriptor
	r := &rule{
		precedence:  u.Precedence,
		matchAll:    td.MatchAll,
		dnns:        slices.Clone(td.Dnns),
		fqdns:       slices.Clone(td.Fqdns),
		protocolIds: slices.Clone(td.ProtocolIds),
		remotePorts: slices.Clone(td.RemotePorts),
		ccts:        slices.Clone(td.Ccts),
	}
	for _, appId := range td.AppIds {
		r.appIds = append(r.appIds, context.ParseOsAppId(appId))
	}
	for _, s := range td.Ipv4Addrs {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		r.ipv4 = append(r.ipv4, p.Masked())
	}
	for _, s := range td.Ipv6Addrs {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		r.ipv6 = append(r.ipv6, p.Masked())
	}
	for _, port := range td.RemotePorts {
		bounds := strings.SplitN(port, message.PortRangeToken, 2)
		start, err := strconv.ParseUint(bounds[0], 10, 16)
		if err != nil {
			return nil, err
		}
		end := start
		if len(bounds) == 2 {
			if end, err = strconv.ParseUint(bounds[1], 10, 16); err != nil {
				return nil, err
			}
		}
		r.portRanges = append(r.portRanges, portRange{start: uint16(start), end: uint16(end)})
	}
	for _, d := range u.RouteSelectionDescriptors {
		rsd := &context.RouteSelectionDescriptor{
			SscMode:        d.SscMode,
			Dnn:            d.Dnn,
			SNssai:         d.SNssai,
			PduSessionType: context.INVALID_PDU_SESSION_TYPE,
			MatchAll:       td.MatchAll,
		}
		if d.PduSessionType != nil {
			rsd.PduSessionType = *d.PduSessionType
		}
		r.rsds = append(r.rsds, rsd)
	}
	return r, nil
}

func (r *rule) hasIpTriad() bool {
	return len(r.ipv4) != 0 || len(r.ipv6) != 0
}

func (r *rule) routeBitmap() uint8 {
	var bitmap uint8
	if r.matchAll {
		bitmap |= context.ROUTE_BITMAP_MATCH_ALL
	}
	if len(r.dnns) != 0 {
		bitmap |= context.MATCH_DNN
	}
	if len(r.fqdns) != 0 {
		bitmap |= context.MATCH_FQDN
	}
	if len(r.ccts) != 0 {
		bitmap |= context.MATCH_CCT
	}
	return bitmap
}

func matchAppId(list []context.OsAppId, osAppId string) bool {
	want := context.ParseOsAppId(osAppId)
	if want.AppId == "" {
		return false
	}
	for _, id := range list {
		if id.AppId != want.AppId {
			continue
		}
		if id.OsId == "" || want.OsId == "" || id.OsId == want.OsId {
			return true
		}
	}
	return false
}

func parseAppDescriptorAddr(ad *context.AppDescriptor) (netip.Addr, bool) {
	s := ad.Ipv4Addr
	if s == "" {
		s = ad.Ipv6Addr
	}
	if s == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		logger.PolicyLog.Debugf("unparsable address %s: %+v", s, err)
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// matchIpTriad checks the address, protocol and port components a rule
// carries against the connection in ad.
func (r *rule) matchIpTriad(ad *context.AppDescriptor) bool {
	addr, ok := parseAppDescriptorAddr(ad)
	if !ok {
		return false
	}
	prefixes := r.ipv4
	if addr.Is6() {
		prefixes = r.ipv6
	}
	if !slices.ContainsFunc(prefixes, func(p netip.Prefix) bool { return p.Contains(addr) }) {
		return false
	}
	if len(r.protocolIds) != 0 && !slices.Contains(r.protocolIds, ad.ProtocolId) {
		return false
	}
	if len(r.portRanges) != 0 {
		port, err := strconv.ParseUint(ad.RemotePort, 10, 16)
		if err != nil {
			return false
		}
		if !slices.ContainsFunc(r.portRanges, func(pr portRange) bool { return pr.contains(uint16(port)) }) {
			return false
		}
	}
	return true
}

// match reports whether the rule applies to ad. Every component present in
// both the rule and the request must match, and at least one must.
func (r *rule) match(ad *context.AppDescriptor) bool {
	if r.matchAll {
		return true
	}
	matched := false
	if len(r.appIds) != 0 && ad.OsAppId != "" {
		if !matchAppId(r.appIds, ad.OsAppId) {
			return false
		}
		matched = true
	}
	if len(r.dnns) != 0 && ad.Dnn != "" {
		if !slices.Contains(r.dnns, ad.Dnn) {
			return false
		}
		matched = true
	}
	if len(r.fqdns) != 0 && ad.Fqdn != "" {
		if !slices.Contains(r.fqdns, ad.Fqdn) {
			return false
		}
		matched = true
	}
	if r.hasIpTriad() && (ad.Ipv4Addr != "" || ad.Ipv6Addr != "") {
		if !r.matchIpTriad(ad) {
			return false
		}
		matched = true
	}
	if len(r.ccts) != 0 && ad.Cct > 0 {
		if !slices.Contains(r.ccts, ad.Cct) {
			return false
		}
		matched = true
	}
	return matched
}

// result flattens the rule and one of its descriptors into the string map
// the slice manager consumes.
func (r *rule) result(rsd *context.RouteSelectionDescriptor) map[string]string {
	data := map[string]string{
		context.RSD_SSCMODE:         strconv.Itoa(int(rsd.SscMode)),
		context.RSD_SNSSAI:          rsd.SNssai,
		context.RSD_DNN:             rsd.Dnn,
		context.TDS_ROUTE_BITMAP:    strconv.Itoa(int(r.routeBitmap())),
		context.TDS_URSP_PRECEDENCE: strconv.Itoa(int(r.precedence)),
	}
	if rsd.PduSessionType != context.INVALID_PDU_SESSION_TYPE {
		data[context.RSD_PDU_SESSION_TYPE] = strconv.Itoa(rsd.PduSessionType)
	}
	if len(r.appIds) != 0 {
		ids := make([]string, 0, len(r.appIds))
		for _, id := range r.appIds {
			ids = append(ids, id.String())
		}
		data[context.TDS_APPIDS] = strings.Join(ids, context.SEPARATOR)
	}
	if len(r.protocolIds) != 0 {
		data[context.TDS_PROTOCOLIDS] = strings.Join(r.protocolIds, context.SEPARATOR)
	}
	if len(r.remotePorts) != 0 {
		data[context.TDS_REMOTEPORTS] = strings.Join(r.remotePorts, context.SEPARATOR)
	}
	if len(r.ipv4) != 0 {
		buf := make([]byte, 0, len(r.ipv4)*message.Ipv4AddrAndMaskLen)
		for _, p := range r.ipv4 {
			addr := p.Addr().As4()
			buf = append(buf, addr[:]...)
			buf = append(buf, net.CIDRMask(p.Bits(), 32)...)
		}
		data[context.TDS_IPV4_NUM] = strconv.Itoa(len(r.ipv4))
		data[context.TDS_IPV4_ADDRANDMASK] = message.BytesToString(buf)
	}
	if len(r.ipv6) != 0 {
		buf := make([]byte, 0, len(r.ipv6)*message.Ipv6AddrAndPrefixLen)
		for _, p := range r.ipv6 {
			addr := p.Addr().As16()
			buf = append(buf, addr[:]...)
			buf = append(buf, byte(p.Bits()))
		}
		data[context.TDS_IPV6_NUM] = strconv.Itoa(len(r.ipv6))
		data[context.TDS_IPV6_ADDRANDPREFIX] = message.BytesToString(buf)
	}
	return data
}

// SliceNetworkSelection returns the policy result of the first rule in
// precedence order that matches ad and still has a descriptor isForbidden
// does not reject.
func (s *Store) SliceNetworkSelection(plmn string, ad context.AppDescriptor,
	isForbidden func(*context.RouteSelectionDescriptor) bool,
) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if plmn != s.plmn {
		logger.PolicyLog.Infof("no ursp rules for plmn %s", plmn)
		return nil, false
	}
	for _, r := range s.rules {
		if !r.match(&ad) {
			continue
		}
		for _, rsd := range r.rsds {
			if isForbidden != nil && isForbidden(rsd) {
				logger.PolicyLog.Infof("skip forbidden %s", rsd)
				continue
			}
			logger.PolicyLog.Debugf("ursp precedence %d selected %s for uid %d", r.precedence, rsd, ad.Uid)
			return r.result(rsd), true
		}
	}
	return nil, false
}

// IsIpThreeTuplesInWhiteList reports whether any rule carrying ip
// components covers the connection in ad.
func (s *Store) IsIpThreeTuplesInWhiteList(plmn string, ad context.AppDescriptor) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if plmn != s.plmn {
		return false
	}
	for _, r := range s.rules {
		if r.hasIpTriad() && r.matchIpTriad(&ad) {
			return true
		}
	}
	return false
}

// UrspChangedData describes the current table the way a URSP update
// announces it: the route selection descriptor of the first match-all rule
// when there is one, otherwise an availability marker. It returns nil when
// the table is empty.
func (s *Store) UrspChangedData() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rules) == 0 {
		return nil
	}
	for _, r := range s.rules {
		if r.matchAll && len(r.rsds) != 0 {
			return r.result(r.rsds[0])
		}
	}
	return map[string]string{
		context.RSD_ROUTE_BITMAP: strconv.Itoa(int(context.MATCH_AVAILABLE)),
	}
}
