// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"sync"
	"testing"
	"time"

	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/omec-project/slicemanager/policy"
	"github.com/omec-project/slicemanager/slice/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingKernel struct {
	mu      sync.Mutex
	records int
}

func (k *countingKernel) SendDataToKernel(payload []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.records++
	return nil
}

type nopNetConn struct{}

func (nopNetConn) RequestNetConnection(*context.NetworkRequest, *context.NetworkCallback, time.Duration) error {
	return nil
}

func (nopNetConn) UnregisterNetConnCallback(*context.NetworkCallback) error { return nil }

func TestSliceServerHandlesPostedEvents(t *testing.T) {
	sliceMgrCtx := &context.SliceMgrContext{}
	sliceMgrCtx.StoreBundle("com.example.game", []int{1000})

	rules := []factory.UrspRule{
		{
			Precedence: 1,
			TrafficDescriptor: factory.UrspTrafficDescriptor{
				AppIds: []string{context.REQUEST_NETWORK_SLICE_OS_ID + "com.example.game"},
			},
			RouteSelectionDescriptors: []factory.UrspRouteSelectionDescriptor{
				{SscMode: 1, SNssai: "01000002", Dnn: "game"},
			},
		},
	}
	cfg := &factory.Configuration{
		NrSliceSupported: true,
		Plmn:             "46001",
		WhiteList: factory.WhiteList{
			OsAppIds: context.REQUEST_NETWORK_SLICE_OS_ID + "com.example.game",
		},
		Environment: factory.Environment{
			SaState:               true,
			DefaultDataOnMainCard: true,
			MobileDataEnabled:     true,
			ScreenOn:              true,
		},
	}
	store := policy.NewStore(cfg.Plmn, rules)
	kernel := &countingKernel{}
	nsm := handler.NewNetworkSliceManager(cfg, handler.Deps{
		Kernel:  kernel,
		NetConn: nopNetConn{},
		Bundles: sliceMgrCtx,
		Policy:  store,
		Post: func(evt context.SliceEvt) bool {
			return Post(sliceMgrCtx, evt)
		},
	})

	assert.False(t, Post(sliceMgrCtx, context.NewDumpSlicesEvt()))

	var wg sync.WaitGroup
	Run(sliceMgrCtx, nsm, &wg)
	require.True(t, Post(sliceMgrCtx, context.NewUrspChangedEvt(store.UrspChangedData())))
	require.True(t, Post(sliceMgrCtx, context.NewForegroundAppChangedEvt(1000, "com.example.game",
		context.APP_STATE_FOREGROUND, true)))
	require.True(t, Post(sliceMgrCtx, context.NewNetworkAvailableEvt(context.NetCapSnssai1, 42)))

	dump := context.NewDumpSlicesEvt()
	require.True(t, Post(sliceMgrCtx, dump))
	select {
	case slots := <-dump.Reply:
		require.Len(t, slots, context.MAX_NETWORK_SLICE)
		assert.Equal(t, 42, slots[0].NetId)
		require.NotNil(t, slots[0].RouteSelection)
		assert.Equal(t, "game", slots[0].RouteSelection.Dnn)
	case <-time.After(2 * time.Second):
		t.Fatal("no dump reply")
	}
	assert.Equal(t, 1, nsm.HwNetworkSliceManager().NetworkSliceCounter())

	Stop(sliceMgrCtx)
	wg.Wait()
	assert.False(t, Post(sliceMgrCtx, context.NewDumpSlicesEvt()))
	// stopping twice must not block
	Stop(sliceMgrCtx)

	kernel.mu.Lock()
	defer kernel.mu.Unlock()
	// report control, unbind all, bind
	assert.Equal(t, 3, kernel.records)
}
