// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	sliceMgrContext "github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	kernelMessage "github.com/omec-project/slicemanager/kernel/message"
	kernelService "github.com/omec-project/slicemanager/kernel/service"
	"github.com/omec-project/slicemanager/logger"
	netConnService "github.com/omec-project/slicemanager/netconn/service"
	"github.com/omec-project/slicemanager/oam"
	"github.com/omec-project/slicemanager/policy"
	"github.com/omec-project/slicemanager/slice/handler"
	sliceService "github.com/omec-project/slicemanager/slice/service"
	"github.com/omec-project/slicemanager/util"
	utilLogger "github.com/omec-project/util/logger"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SliceMgr main struct
type SliceMgr struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	kernelProxy *kernelService.KernelProxy
	linkMonitor *netConnService.LinkMonitor
	oamServer   *oam.Server
}

// Config holds configuration file path
type Config struct {
	cfg string
}

var config Config

var sliceMgrCli = []cli.Flag{
	cli.StringFlag{
		Name:     "cfg",
		Usage:    "slice manager config file",
		Required: true,
	},
}

func (*SliceMgr) GetCliCmd() (flags []cli.Flag) {
	return sliceMgrCli
}

// Initialize loads config and sets log levels
func (sliceMgr *SliceMgr) Initialize(c *cli.Context) error {
	config = Config{cfg: c.String("cfg")}
	absPath, err := filepath.Abs(config.cfg)
	if err != nil {
		logger.CfgLog.Errorln(err)
		return err
	}
	if err := factory.InitConfigFactory(absPath); err != nil {
		return err
	}
	if err := factory.CheckConfigVersion(); err != nil {
		return err
	}
	if _, err := factory.SliceMgrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", absPath, err)
	}
	factory.SliceMgrConfig.Print()
	sliceMgr.setLogLevel()
	return nil
}

// setLogLevel configures log levels for all modules
func (sliceMgr *SliceMgr) setLogLevel() {
	cfgLogger := factory.SliceMgrConfig.Logger
	if cfgLogger == nil {
		logger.InitLog.Warnln("slice manager config without log level setting")
		return
	}
	setModuleLogLevel(cfgLogger.SliceManager, logger.InitLog, logger.SetLogLevel, "SliceManager")
	setModuleLogLevel(cfgLogger.Util, utilLogger.UtilLog, utilLogger.SetLogLevel, "Util (idgenerator, etc.)")
}

// setModuleLogLevel is a helper to reduce repetition in log level setup
func setModuleLogLevel(moduleCfg *utilLogger.LogSetting, logObj *zap.SugaredLogger, setLevel func(zapcore.Level), moduleName string) {
	if moduleCfg == nil || moduleCfg.DebugLevel == "" {
		logObj.Warnf("%s Log level not set. Default set to [info] level", moduleName)
		setLevel(zap.InfoLevel)
		return
	}
	level, err := zapcore.ParseLevel(moduleCfg.DebugLevel)
	if err != nil {
		logObj.Warnf("%s Log level [%s] is invalid, set to [info] level", moduleName, moduleCfg.DebugLevel)
		setLevel(zap.InfoLevel)
		return
	}
	logObj.Infof("%s Log level is set to [%s] level", moduleName, level)
	setLevel(level)
}

// FilterCli returns CLI args for flags
func (sliceMgr *SliceMgr) FilterCli(c *cli.Context) (args []string) {
	for _, flag := range sliceMgr.GetCliCmd() {
		name := flag.GetName()
		value := fmt.Sprint(c.Generic(name))
		if value == "" {
			continue
		}
		args = append(args, "--"+name, value)
	}
	return args
}

// Start launches all services and handles graceful shutdown
func (sliceMgr *SliceMgr) Start() {
	logger.InitLog.Infoln("server started")
	sliceMgr.ctx, sliceMgr.cancel = context.WithCancel(context.Background())
	defer sliceMgr.cancel()
	if !util.InitSliceMgrContext() {
		logger.InitLog.Errorln("initializing context failed")
		return
	}
	sliceMgrCtx := sliceMgrContext.SliceMgrSelf()
	cfg := factory.SliceMgrConfig.Configuration

	post := func(evt sliceMgrContext.SliceEvt) bool {
		return sliceService.Post(sliceMgrCtx, evt)
	}
	store := policy.NewStore(cfg.Plmn, cfg.Ursp)
	sliceMgr.kernelProxy = kernelService.NewKernelProxy(cfg.GetNetlinkProtocol())
	sliceMgr.linkMonitor = netConnService.NewLinkMonitor(cfg, post)
	sliceMgr.oamServer = oam.NewServer(cfg.GetOamAddress(), post)

	nsm := handler.NewNetworkSliceManager(cfg, handler.Deps{
		Kernel:  sliceMgr.kernelProxy,
		NetConn: sliceMgr.linkMonitor,
		Bundles: sliceMgrCtx,
		Policy:  store,
		Post:    post,
	})

	sliceMgr.wg.Add(1)
	go sliceMgr.ListenShutdownEvent(sliceMgrCtx)

	if err := sliceMgr.kernelProxy.Run(sliceMgr.ctx, &sliceMgr.wg); err != nil {
		logger.InitLog.Errorf("start kernel proxy failed: %+v", err)
		sliceMgr.terminate()
		return
	}
	logger.InitLog.Infoln("kernel proxy running")

	sliceService.Run(sliceMgrCtx, nsm, &sliceMgr.wg)
	logger.InitLog.Infoln("slice service running")
	sliceMgr.kernelProxy.RegisterHandler(kernelService.ModuleSliceManager, func(data []byte) {
		post(sliceMgrContext.NewKernelIpReportEvt(data))
	}, []int16{kernelMessage.KERNEL_RSP_SLICE_IP_PARA})

	if err := sliceMgr.linkMonitor.Run(sliceMgr.ctx, &sliceMgr.wg); err != nil {
		logger.InitLog.Errorf("start link monitor failed: %+v", err)
		sliceMgr.terminate()
		return
	}
	logger.InitLog.Infoln("link monitor running")

	if err := sliceMgr.oamServer.Run(&sliceMgr.wg); err != nil {
		logger.InitLog.Errorf("start OAM server failed: %+v", err)
		sliceMgr.terminate()
		return
	}
	logger.InitLog.Infoln("OAM server running")

	// the configured policy is the first URSP update
	post(sliceMgrContext.NewUrspChangedEvt(store.UrspChangedData()))
	logger.InitLog.Infoln("slice manager running")

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
	select {
	case <-signalChannel:
	case <-sliceMgr.ctx.Done():
	}
	sliceMgr.cancel()
	sliceMgr.WaitRoutineStopped()
}

// terminate stops whatever already runs after a failed start
func (sliceMgr *SliceMgr) terminate() {
	sliceMgr.cancel()
	sliceMgr.wg.Wait()
}

// ListenShutdownEvent waits for shutdown and stops services
func (sliceMgr *SliceMgr) ListenShutdownEvent(sliceMgrCtx *sliceMgrContext.SliceMgrContext) {
	defer util.RecoverWithLog(logger.InitLog)
	defer sliceMgr.wg.Done()
	<-sliceMgr.ctx.Done()
	sliceMgr.stopServiceConn(sliceMgrCtx)
}

// WaitRoutineStopped waits for all goroutines and terminates
func (sliceMgr *SliceMgr) WaitRoutineStopped() {
	sliceMgr.wg.Wait()
	time.Sleep(2 * time.Second)
	os.Exit(0)
}

// stopServiceConn stops all running services
func (sliceMgr *SliceMgr) stopServiceConn(sliceMgrCtx *sliceMgrContext.SliceMgrContext) {
	logger.InitLog.Infoln("stopping services created by slice manager")
	sliceMgr.oamServer.Stop()
	sliceService.Stop(sliceMgrCtx)
	sliceMgr.linkMonitor.Stop()
	sliceMgr.kernelProxy.Stop()
}
