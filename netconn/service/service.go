// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sliceContext "github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/omec-project/slicemanager/logger"
	"github.com/omec-project/slicemanager/util"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const RECEIVE_LINKUPDATE_CHANNEL_LEN = 64

var (
	ErrNoSliceInterface       = errors.New("no data interface configured for slice")
	ErrCallbackNotRegistered  = errors.New("network callback is not registered")
	ErrLinkMonitorNotRunnable = errors.New("link monitor is already running")
)

// linkSource is the part of the netlink link API the monitor needs.
type linkSource interface {
	Subscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}, errorCallback func(error)) error
	LinkByName(name string) (netlink.Link, error)
}

type netlinkSource struct{}

func (netlinkSource) Subscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}, errorCallback func(error)) error {
	return netlink.LinkSubscribeWithOptions(ch, done, netlink.LinkSubscribeOptions{
		ErrorCallback: errorCallback,
		ListExisting:  true,
	})
}

func (netlinkSource) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func isLinkUp(link netlink.Link) bool {
	attrs := link.Attrs()
	if attrs.OperState == netlink.OperUp {
		return true
	}
	return attrs.RawFlags&unix.IFF_UP != 0 && attrs.RawFlags&unix.IFF_RUNNING != 0
}

type sliceLink struct {
	netCap    sliceContext.NetCap
	ifName    string
	callback  *sliceContext.NetworkCallback
	timer     *sliceContext.Timer
	available bool
	netId     int
}

// LinkMonitor brings slice networks up by watching the data interface of
// each slice. A network is available while its interface is up; the
// interface index is the network id. The Wi-Fi interface is watched the
// same way. Registered callbacks are owned by the slice event handler and
// never written here.
type LinkMonitor struct {
	mu            sync.Mutex
	post          func(evt sliceContext.SliceEvt) bool
	source        linkSource
	wifiInterface string
	wifiState     int
	links         map[sliceContext.NetCap]*sliceLink
	linksByName   map[string]*sliceLink
	done          chan struct{}
}

func NewLinkMonitor(cfg *factory.Configuration, post func(evt sliceContext.SliceEvt) bool) *LinkMonitor {
	m := &LinkMonitor{
		post:          post,
		source:        netlinkSource{},
		wifiInterface: cfg.WifiInterface,
		links:         make(map[sliceContext.NetCap]*sliceLink),
		linksByName:   make(map[string]*sliceLink),
	}
	for _, sliceIf := range cfg.SliceInterfaces {
		l := &sliceLink{
			netCap: sliceContext.NetCap(sliceIf.NetCap),
			ifName: sliceIf.IfName,
			netId:  sliceContext.INVALID_NET_ID,
		}
		m.links[l.netCap] = l
		m.linksByName[l.ifName] = l
	}
	return m
}

// Run subscribes to link updates and starts the receiver. Links that are
// already present are reported first.
func (m *LinkMonitor) Run(ctx context.Context, wg *sync.WaitGroup) error {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return ErrLinkMonitorNotRunnable
	}
	updates := make(chan netlink.LinkUpdate, RECEIVE_LINKUPDATE_CHANNEL_LEN)
	done := make(chan struct{})
	err := m.source.Subscribe(updates, done, func(err error) {
		logger.NetConnLog.Errorf("link subscription: %+v", err)
	})
	if err != nil {
		m.mu.Unlock()
		logger.NetConnLog.Errorf("subscribe link updates failed: %+v", err)
		return fmt.Errorf("link monitor run failed: %w", err)
	}
	m.done = done
	m.mu.Unlock()

	logger.NetConnLog.Infof("link monitor watching %d slice interfaces, wifi %q", len(m.links), m.wifiInterface)
	wg.Add(1)
	go m.receiver(ctx, updates, done, wg)
	return nil
}

func (m *LinkMonitor) receiver(ctx context.Context, updates <-chan netlink.LinkUpdate, done <-chan struct{},
	wg *sync.WaitGroup,
) {
	defer util.RecoverWithLog(logger.NetConnLog)
	defer func() {
		logger.NetConnLog.Infoln("link monitor stopped")
		wg.Done()
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			m.Stop()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Link == nil {
				continue
			}
			m.handleLinkUpdate(update.Link)
		}
	}
}

func (m *LinkMonitor) handleLinkUpdate(link netlink.Link) {
	attrs := link.Attrs()
	up := isLinkUp(link)
	logger.NetConnLog.Debugf("link %s (index %d) up: %t", attrs.Name, attrs.Index, up)

	var evts []sliceContext.SliceEvt
	m.mu.Lock()
	if m.wifiInterface != "" && attrs.Name == m.wifiInterface {
		state := sliceContext.WIFI_STATE_DISCONNECTED
		if up {
			state = sliceContext.WIFI_STATE_CONNECTED
		}
		if state != m.wifiState {
			m.wifiState = state
			evts = append(evts, sliceContext.NewWifiConnChangedEvt(state))
		}
	}
	if l, ok := m.linksByName[attrs.Name]; ok {
		switch {
		case up && !l.available:
			l.available = true
			l.netId = attrs.Index
			if l.callback != nil {
				l.timer.Stop()
				l.timer = nil
				evts = append(evts, sliceContext.NewNetworkAvailableEvt(l.netCap, l.netId))
			}
		case !up && l.available:
			l.available = false
			if l.callback != nil {
				evts = append(evts, sliceContext.NewNetworkLostEvt(l.netCap, l.netId))
			}
		}
	}
	m.mu.Unlock()

	for _, evt := range evts {
		if !m.post(evt) {
			logger.NetConnLog.Warnf("drop link event %d", evt.Type())
		}
	}
}

// RequestNetConnection registers cb for the slice network of req. The
// availability is reported asynchronously: NetworkAvailable once the
// interface is up, NetworkUnavailable when it does not come up within
// timeout.
func (m *LinkMonitor) RequestNetConnection(req *sliceContext.NetworkRequest, cb *sliceContext.NetworkCallback,
	timeout time.Duration,
) error {
	if req == nil || cb == nil {
		return ErrCallbackNotRegistered
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[req.NetCap]
	if !ok {
		return fmt.Errorf("%s: %w", req.NetCap, ErrNoSliceInterface)
	}
	logger.NetConnLog.Infof("request %s on %s (request id %d, paras %v)", req.NetCap, l.ifName, req.RequestId,
		req.Paras)
	l.callback = cb
	l.timer.Stop()
	l.timer = nil

	if !l.available {
		if link, err := m.source.LinkByName(l.ifName); err != nil {
			logger.NetConnLog.Debugf("link %s: %+v", l.ifName, err)
		} else if isLinkUp(link) {
			l.available = true
			l.netId = link.Attrs().Index
		}
	}
	if l.available {
		m.postAsync(sliceContext.NewNetworkAvailableEvt(l.netCap, l.netId))
		return nil
	}
	netCap := l.netCap
	l.timer = sliceContext.NewOneShotTimer(timeout, func() {
		m.requestTimeout(netCap, cb)
	})
	return nil
}

// postAsync keeps the slice event handler, which calls into the monitor,
// from blocking on its own queue.
func (m *LinkMonitor) postAsync(evt sliceContext.SliceEvt) {
	go func() {
		defer util.RecoverWithLog(logger.NetConnLog)
		if !m.post(evt) {
			logger.NetConnLog.Warnf("drop link event %d", evt.Type())
		}
	}()
}

func (m *LinkMonitor) requestTimeout(netCap sliceContext.NetCap, cb *sliceContext.NetworkCallback) {
	m.mu.Lock()
	l := m.links[netCap]
	if l == nil || l.callback != cb || l.available {
		m.mu.Unlock()
		return
	}
	l.callback = nil
	l.timer = nil
	m.mu.Unlock()

	logger.NetConnLog.Warnf("%s did not come up on %s", netCap, l.ifName)
	m.post(sliceContext.NewNetworkUnavailableEvt(netCap))
}

func (m *LinkMonitor) UnregisterNetConnCallback(cb *sliceContext.NetworkCallback) error {
	if cb == nil {
		return ErrCallbackNotRegistered
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[cb.NetCap]
	if !ok || l.callback != cb {
		return fmt.Errorf("%s: %w", cb.NetCap, ErrCallbackNotRegistered)
	}
	l.callback = nil
	l.timer.Stop()
	l.timer = nil
	logger.NetConnLog.Infof("unregister %s", cb.NetCap)
	return nil
}

// Stop ends the subscription and cancels pending requests.
func (m *LinkMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	for _, l := range m.links {
		l.timer.Stop()
		l.timer = nil
	}
	logger.NetConnLog.Infoln("close link monitor")
}
