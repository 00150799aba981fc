// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package oam

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	sliceContext "github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/logger"
	"github.com/omec-project/slicemanager/util"
)

const (
	OamUriPrefix = "/slicemgr/v1"

	defaultDumpTimeout     = 2 * time.Second
	defaultShutdownTimeout = 2 * time.Second
)

type Route struct {
	Method  string
	Pattern string
	APIFunc gin.HandlerFunc
}

func applyRoutes(group *gin.RouterGroup, routes []Route) {
	for _, route := range routes {
		switch route.Method {
		case http.MethodGet:
			group.GET(route.Pattern, route.APIFunc)
		case http.MethodPost:
			group.POST(route.Pattern, route.APIFunc)
		}
	}
}

// Server feeds externally observed system events to the slice event
// handler and exposes the slot table.
type Server struct {
	httpServer  *http.Server
	router      *gin.Engine
	post        func(evt sliceContext.SliceEvt) bool
	dumpTimeout time.Duration
}

func NewServer(addr string, post func(evt sliceContext.SliceEvt) bool) *Server {
	s := &Server{
		post:        post,
		dumpTimeout: defaultDumpTimeout,
	}
	s.router = newRouter(s)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func newRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(ginToZap(), gin.Recovery())

	oamGroup := router.Group(OamUriPrefix)
	applyRoutes(oamGroup, s.getOAMRoutes())
	return router
}

// ginToZap logs every request on the OAM category logger.
func ginToZap() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.OamLog.Infof("| %3d | %12v | %15s | %-7s %s",
			c.Writer.Status(), time.Since(start), c.ClientIP(), c.Request.Method, c.Request.URL.Path)
		if len(c.Errors) > 0 {
			logger.OamLog.Warnln(c.Errors.String())
		}
	}
}

func (s *Server) Run(wg *sync.WaitGroup) error {
	wg.Add(1)
	go s.startServer(wg)
	return nil
}

func (s *Server) startServer(wg *sync.WaitGroup) {
	defer util.RecoverWithLog(logger.OamLog)
	defer wg.Done()

	logger.OamLog.Infof("start OAM server (listen on %s)", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.OamLog.Errorf("OAM server error: %+v", err)
	}
	logger.OamLog.Warnf("OAM server (listen on %s) stopped", s.httpServer.Addr)
}

func (s *Server) Stop() {
	logger.OamLog.Infof("stop OAM server (listen on %s)", s.httpServer.Addr)
	toCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(toCtx); err != nil {
		logger.OamLog.Errorf("could not close OAM server: %+v", err)
	}
}
