// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sliceContext "github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

type fakeSource struct {
	mu      sync.Mutex
	links   map[string]netlink.Link
	updates chan<- netlink.LinkUpdate
}

func (s *fakeSource) Subscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}, errorCallback func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = ch
	return nil
}

func (s *fakeSource) LinkByName(name string) (netlink.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[name]
	if !ok {
		return nil, errors.New("link not found")
	}
	return link, nil
}

func (s *fakeSource) setLink(link netlink.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.Attrs().Name] = link
}

func (s *fakeSource) notify(link netlink.Link) {
	s.setLink(link)
	s.mu.Lock()
	ch := s.updates
	s.mu.Unlock()
	ch <- netlink.LinkUpdate{Link: link}
}

func dummyLink(name string, index int, up bool) netlink.Link {
	attrs := netlink.LinkAttrs{Name: name, Index: index, OperState: netlink.OperDown}
	if up {
		attrs.RawFlags = unix.IFF_UP | unix.IFF_RUNNING
	}
	return &netlink.Dummy{LinkAttrs: attrs}
}

type testMonitor struct {
	monitor *LinkMonitor
	source  *fakeSource
	events  chan sliceContext.SliceEvt
}

func newTestMonitor(t *testing.T) *testMonitor {
	t.Helper()
	cfg := &factory.Configuration{
		WifiInterface: "wlan0",
		SliceInterfaces: []factory.SliceInterface{
			{NetCap: 1, IfName: "rmnet_slice1"},
			{NetCap: 2, IfName: "rmnet_slice2"},
		},
	}
	events := make(chan sliceContext.SliceEvt, 16)
	m := NewLinkMonitor(cfg, func(evt sliceContext.SliceEvt) bool {
		events <- evt
		return true
	})
	source := &fakeSource{links: make(map[string]netlink.Link)}
	m.source = source

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if err := m.Run(ctx, &wg); err != nil {
		t.Fatalf("Run failed: %+v", err)
	}
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return &testMonitor{monitor: m, source: source, events: events}
}

func (tm *testMonitor) nextEvent(t *testing.T) sliceContext.SliceEvt {
	t.Helper()
	select {
	case evt := <-tm.events:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event posted")
		return nil
	}
}

func (tm *testMonitor) expectNoEvent(t *testing.T) {
	t.Helper()
	select {
	case evt := <-tm.events:
		t.Fatalf("Unexpected event %d", evt.Type())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRequestOnUpLinkIsAvailable(t *testing.T) {
	tm := newTestMonitor(t)
	tm.source.setLink(dummyLink("rmnet_slice1", 7, true))

	req := &sliceContext.NetworkRequest{NetCap: sliceContext.NetCapSnssai1, RequestId: 1}
	cb := sliceContext.NewNetworkCallback(sliceContext.NetCapSnssai1)
	if err := tm.monitor.RequestNetConnection(req, cb, time.Second); err != nil {
		t.Fatalf("RequestNetConnection failed: %+v", err)
	}

	evt, ok := tm.nextEvent(t).(*sliceContext.NetworkAvailableEvt)
	if !ok {
		t.Fatal("Expected NetworkAvailableEvt")
	}
	if evt.NetCap != sliceContext.NetCapSnssai1 || evt.NetId != 7 {
		t.Errorf("Expected %s/7, got %s/%d", sliceContext.NetCapSnssai1, evt.NetCap, evt.NetId)
	}
}

func TestRequestWaitsForLinkUp(t *testing.T) {
	tm := newTestMonitor(t)
	req := &sliceContext.NetworkRequest{NetCap: sliceContext.NetCapSnssai2, RequestId: 2}
	cb := sliceContext.NewNetworkCallback(sliceContext.NetCapSnssai2)
	if err := tm.monitor.RequestNetConnection(req, cb, 200*time.Millisecond); err != nil {
		t.Fatalf("RequestNetConnection failed: %+v", err)
	}
	tm.expectNoEvent(t)

	tm.source.notify(dummyLink("rmnet_slice2", 9, true))
	if evt, ok := tm.nextEvent(t).(*sliceContext.NetworkAvailableEvt); !ok || evt.NetId != 9 {
		t.Fatal("Expected NetworkAvailableEvt with net id 9")
	}

	tm.source.notify(dummyLink("rmnet_slice2", 9, false))
	lost, ok := tm.nextEvent(t).(*sliceContext.NetworkLostEvt)
	if !ok {
		t.Fatal("Expected NetworkLostEvt")
	}
	if lost.NetCap != sliceContext.NetCapSnssai2 || lost.NetId != 9 {
		t.Errorf("Expected %s/9, got %s/%d", sliceContext.NetCapSnssai2, lost.NetCap, lost.NetId)
	}

	// the request outlived the timeout, no unavailable report follows
	time.Sleep(250 * time.Millisecond)
	tm.expectNoEvent(t)
}

func TestRequestTimesOut(t *testing.T) {
	tm := newTestMonitor(t)
	req := &sliceContext.NetworkRequest{NetCap: sliceContext.NetCapSnssai1}
	cb := sliceContext.NewNetworkCallback(sliceContext.NetCapSnssai1)
	if err := tm.monitor.RequestNetConnection(req, cb, 20*time.Millisecond); err != nil {
		t.Fatalf("RequestNetConnection failed: %+v", err)
	}

	evt, ok := tm.nextEvent(t).(*sliceContext.NetworkUnavailableEvt)
	if !ok {
		t.Fatal("Expected NetworkUnavailableEvt")
	}
	if evt.NetCap != sliceContext.NetCapSnssai1 {
		t.Errorf("Expected %s, got %s", sliceContext.NetCapSnssai1, evt.NetCap)
	}
	if err := tm.monitor.UnregisterNetConnCallback(cb); !errors.Is(err, ErrCallbackNotRegistered) {
		t.Errorf("Expected ErrCallbackNotRegistered, got %v", err)
	}
}

func TestUnregisterCancelsRequest(t *testing.T) {
	tm := newTestMonitor(t)
	req := &sliceContext.NetworkRequest{NetCap: sliceContext.NetCapSnssai1}
	cb := sliceContext.NewNetworkCallback(sliceContext.NetCapSnssai1)
	if err := tm.monitor.RequestNetConnection(req, cb, 30*time.Millisecond); err != nil {
		t.Fatalf("RequestNetConnection failed: %+v", err)
	}
	if err := tm.monitor.UnregisterNetConnCallback(cb); err != nil {
		t.Fatalf("UnregisterNetConnCallback failed: %+v", err)
	}
	tm.expectNoEvent(t)

	// link changes of an unrequested slice are not reported
	tm.source.notify(dummyLink("rmnet_slice1", 7, true))
	tm.expectNoEvent(t)
}

func TestRequestWithoutInterface(t *testing.T) {
	tm := newTestMonitor(t)
	req := &sliceContext.NetworkRequest{NetCap: sliceContext.NetCapSnssai5}
	cb := sliceContext.NewNetworkCallback(sliceContext.NetCapSnssai5)
	if err := tm.monitor.RequestNetConnection(req, cb, time.Second); !errors.Is(err, ErrNoSliceInterface) {
		t.Errorf("Expected ErrNoSliceInterface, got %v", err)
	}
}

func TestWifiStateChanges(t *testing.T) {
	tm := newTestMonitor(t)

	tm.source.notify(dummyLink("wlan0", 3, true))
	evt, ok := tm.nextEvent(t).(*sliceContext.WifiConnChangedEvt)
	if !ok || evt.State != sliceContext.WIFI_STATE_CONNECTED {
		t.Fatal("Expected wifi connected event")
	}

	// same state again
	tm.source.notify(dummyLink("wlan0", 3, true))
	tm.expectNoEvent(t)

	tm.source.notify(dummyLink("wlan0", 3, false))
	evt, ok = tm.nextEvent(t).(*sliceContext.WifiConnChangedEvt)
	if !ok || evt.State != sliceContext.WIFI_STATE_DISCONNECTED {
		t.Fatal("Expected wifi disconnected event")
	}
}

func TestRunTwiceFails(t *testing.T) {
	tm := newTestMonitor(t)
	var wg sync.WaitGroup
	if err := tm.monitor.Run(context.Background(), &wg); !errors.Is(err, ErrLinkMonitorNotRunnable) {
		t.Errorf("Expected ErrLinkMonitorNotRunnable, got %v", err)
	}
}
