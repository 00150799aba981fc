// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package oam

import (
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	sliceContext "github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/logger"
)

// Address families of a DNS answer, numbered as the resolver reports them
const (
	ADDR_TYPE_IPV4 = 0
	ADDR_TYPE_IPV6 = 1
)

type ForegroundAppRequest struct {
	Uid        int    `json:"uid"`
	BundleName string `json:"bundleName" binding:"required"`
	State      int    `json:"state" binding:"required"`
	Focused    bool   `json:"focused"`
}

type DnsAddress struct {
	Type *int   `json:"type" binding:"required"`
	Addr string `json:"addr" binding:"required"`
}

type DnsResultRequest struct {
	Uid       int          `json:"uid"`
	Fqdn      string       `json:"fqdn" binding:"required"`
	Addresses []DnsAddress `json:"addresses" binding:"dive"`
}

type SwitchRequest struct {
	On *bool `json:"on" binding:"required"`
}

type WifiRequest struct {
	State int `json:"state" binding:"required"`
}

type ActivateResultRequest struct {
	Result         int    `json:"result"`
	Dnn            string `json:"dnn"`
	SNssai         string `json:"snssai"`
	PduSessionType int    `json:"pduSessionType"`
	SscMode        uint8  `json:"sscMode"`
}

type UidRemovedRequest struct {
	BundleName string `json:"bundleName" binding:"required"`
}

// NetworkRequest is an application asking for a slice network. Cct is
// omitted when the request carries only a dnn.
type NetworkRequest struct {
	Uid int    `json:"uid"`
	Dnn string `json:"dnn"`
	Cct *int   `json:"cct"`
}

func (s *Server) getOAMRoutes() []Route {
	return []Route{
		{
			Method:  http.MethodGet,
			Pattern: "/",
			APIFunc: func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "Service Available"})
			},
		},
		{
			Method:  http.MethodGet,
			Pattern: "/slices",
			APIFunc: s.HTTPGetSlices,
		},
		{
			Method:  http.MethodGet,
			Pattern: "/rsd/:netcap",
			APIFunc: s.HTTPGetRsdByNetCap,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/foreground-app",
			APIFunc: s.HTTPForegroundAppChanged,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/dns-result",
			APIFunc: s.HTTPDnsResult,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/ursp",
			APIFunc: s.HTTPUrspChanged,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/airplane",
			APIFunc: s.switchHandler(func(on bool) sliceContext.SliceEvt {
				return sliceContext.NewAirModeChangedEvt(on)
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/wifi",
			APIFunc: s.HTTPWifiConnChanged,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/vpn",
			APIFunc: s.switchHandler(func(on bool) sliceContext.SliceEvt {
				return sliceContext.NewVpnModeChangedEvt(on)
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/screen",
			APIFunc: s.switchHandler(func(on bool) sliceContext.SliceEvt {
				return sliceContext.NewScreenStateChangedEvt(on)
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/sa-state",
			APIFunc: s.switchHandler(func(on bool) sliceContext.SliceEvt {
				return sliceContext.NewSaStateChangedEvt(on)
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/activate-result",
			APIFunc: s.HTTPNetworkActivateResult,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/uid-removed",
			APIFunc: s.HTTPUidRemoved,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/network-request",
			APIFunc: s.HTTPNetworkRequested,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/default-data",
			APIFunc: s.switchHandler(func(on bool) sliceContext.SliceEvt {
				return sliceContext.NewDefaultDataChangedEvt(on)
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: "/events/mobile-data",
			APIFunc: s.switchHandler(func(on bool) sliceContext.SliceEvt {
				return sliceContext.NewMobileDataChangedEvt(on)
			}),
		},
	}
}

func badRequest(c *gin.Context, err error) {
	logger.OamLog.Warnf("%s %s: %+v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusBadRequest, gin.H{"status": "Bad Request", "cause": err.Error()})
}

func (s *Server) postEvent(c *gin.Context, evt sliceContext.SliceEvt) {
	if !s.post(evt) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "Slice Server Unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) HTTPForegroundAppChanged(c *gin.Context) {
	var req ForegroundAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.postEvent(c, sliceContext.NewForegroundAppChangedEvt(req.Uid, req.BundleName, req.State, req.Focused))
}

func (s *Server) HTTPDnsResult(c *gin.Context) {
	var req DnsResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	addrs := make([]netip.Addr, 0, len(req.Addresses))
	for _, address := range req.Addresses {
		addr, err := parseDnsAddress(address)
		if err != nil {
			badRequest(c, err)
			return
		}
		addrs = append(addrs, addr)
	}
	s.postEvent(c, sliceContext.NewDnsResultEvt(req.Uid, req.Fqdn, addrs))
}

func parseDnsAddress(address DnsAddress) (netip.Addr, error) {
	addr, err := netip.ParseAddr(address.Addr)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse address %q: %w", address.Addr, err)
	}
	switch *address.Type {
	case ADDR_TYPE_IPV4:
		if !addr.Unmap().Is4() {
			return netip.Addr{}, fmt.Errorf("address %s is not ipv4", addr)
		}
		return addr.Unmap(), nil
	case ADDR_TYPE_IPV6:
		if !addr.Is6() {
			return netip.Addr{}, fmt.Errorf("address %s is not ipv6", addr)
		}
		return addr, nil
	default:
		return netip.Addr{}, fmt.Errorf("unknown address type %d", *address.Type)
	}
}

func (s *Server) HTTPUrspChanged(c *gin.Context) {
	data := make(map[string]string)
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, err)
		return
	}
	s.postEvent(c, sliceContext.NewUrspChangedEvt(data))
}

func (s *Server) switchHandler(newEvt func(on bool) sliceContext.SliceEvt) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SwitchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		s.postEvent(c, newEvt(*req.On))
	}
}

func (s *Server) HTTPWifiConnChanged(c *gin.Context) {
	var req WifiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.postEvent(c, sliceContext.NewWifiConnChangedEvt(req.State))
}

func (s *Server) HTTPNetworkActivateResult(c *gin.Context) {
	var req ActivateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.postEvent(c, sliceContext.NewNetworkActivateResultEvt(req.Result, req.Dnn, req.SNssai, req.PduSessionType,
		req.SscMode))
}

func (s *Server) HTTPUidRemoved(c *gin.Context) {
	var req UidRemovedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.postEvent(c, sliceContext.NewUidRemovedEvt(req.BundleName))
}

func (s *Server) HTTPGetSlices(c *gin.Context) {
	evt := sliceContext.NewDumpSlicesEvt()
	if !s.post(evt) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "Slice Server Unavailable"})
		return
	}
	select {
	case slices := <-evt.Reply:
		c.JSON(http.StatusOK, slices)
	case <-time.After(s.dumpTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"status": "Slice Server Timeout"})
	}
}

func (s *Server) HTTPNetworkRequested(c *gin.Context) {
	var req NetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cct := sliceContext.CCT_INVALID
	if req.Cct != nil {
		cct = *req.Cct
	}
	if req.Dnn == "" && cct == sliceContext.CCT_INVALID {
		badRequest(c, fmt.Errorf("network request of uid %d carries neither dnn nor cct", req.Uid))
		return
	}
	s.postEvent(c, sliceContext.NewNetworkRequestedEvt(req.Uid, req.Dnn, cct))
}

func (s *Server) HTTPGetRsdByNetCap(c *gin.Context) {
	netCap, err := strconv.Atoi(c.Param("netcap"))
	if err != nil || netCap < int(sliceContext.NetCapSnssai1) || netCap > int(sliceContext.NetCapSnssai6) {
		badRequest(c, fmt.Errorf("invalid net capability %q", c.Param("netcap")))
		return
	}
	evt := sliceContext.NewGetRsdByNetCapEvt(sliceContext.NetCap(netCap))
	if !s.post(evt) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "Slice Server Unavailable"})
		return
	}
	select {
	case paras := <-evt.Reply:
		if paras == nil {
			paras = map[string]string{}
		}
		c.JSON(http.StatusOK, paras)
	case <-time.After(s.dumpTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"status": "Slice Server Timeout"})
	}
}
