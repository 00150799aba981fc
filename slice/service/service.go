// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"sync"

	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/logger"
	"github.com/omec-project/slicemanager/slice/handler"
	"github.com/omec-project/slicemanager/util"
)

const RECEIVE_SLICEEVENT_CHANNEL_LEN = 512

// Run starts the slice event handler. nsm must be fully constructed; the
// handler goroutine is the only one touching it afterwards.
func Run(sliceMgrCtx *context.SliceMgrContext, nsm *handler.NetworkSliceManager, wg *sync.WaitGroup) {
	sliceMgrCtx.SliceServer = &context.SliceServer{
		RcvEventCh: make(chan context.SliceEvt, RECEIVE_SLICEEVENT_CHANNEL_LEN),
		StopServer: make(chan struct{}),
		Done:       make(chan struct{}),
	}
	handler.SetNetworkSliceManager(nsm)

	wg.Add(1)
	go runSliceEventHandler(sliceMgrCtx.SliceServer, nsm, wg)
}

func runSliceEventHandler(sliceServer *context.SliceServer, nsm *handler.NetworkSliceManager, wg *sync.WaitGroup) {
	defer util.RecoverWithLog(logger.SliceLog)

	defer func() {
		logger.SliceLog.Infoln("slice server stopped")
		nsm.Stop()
		close(sliceServer.Done)
		wg.Done()
	}()

	nsm.Init()
	for {
		select {
		case rcvEvt := <-sliceServer.RcvEventCh:
			handler.HandleEvent(rcvEvt)
		case <-sliceServer.StopServer:
			return
		}
	}
}

// Post hands evt to the slice event handler. It returns false before Run
// and after Stop.
func Post(sliceMgrCtx *context.SliceMgrContext, evt context.SliceEvt) bool {
	if sliceMgrCtx.SliceServer == nil {
		logger.SliceLog.Warnln("slice server is not running")
		return false
	}
	return sliceMgrCtx.SliceServer.Post(evt)
}

func Stop(sliceMgrCtx *context.SliceMgrContext) {
	logger.SliceLog.Infoln("close slice server")
	if sliceMgrCtx.SliceServer == nil {
		return
	}
	select {
	case <-sliceMgrCtx.SliceServer.Done:
	case sliceMgrCtx.SliceServer.StopServer <- struct{}{}:
	}
}
