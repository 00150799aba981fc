// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package oam

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sliceContext "github.com/omec-project/slicemanager/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []sliceContext.SliceEvt
	accept bool
}

func (r *recorder) post(evt sliceContext.SliceEvt) bool {
	if !r.accept {
		return false
	}
	r.events = append(r.events, evt)
	switch e := evt.(type) {
	case *sliceContext.DumpSlicesEvt:
		e.Reply <- []sliceContext.SliceDump{{NetCap: sliceContext.NetCapSnssai1.String(), NetId: 42}}
	case *sliceContext.GetRsdByNetCapEvt:
		if e.NetCap == sliceContext.NetCapSnssai1 {
			e.Reply <- map[string]string{"dnn": "game", "snssai": "01000002"}
		} else {
			e.Reply <- nil
		}
	}
	return true
}

func newTestServer() (*Server, *recorder) {
	gin.SetMode(gin.TestMode)
	rec := &recorder{accept: true}
	return NewServer(":0", rec.post), rec
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, OamUriPrefix+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer()
	w := doRequest(s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Service Available")
}

func TestEventRoutes(t *testing.T) {
	testCases := []struct {
		name  string
		path  string
		body  string
		check func(t *testing.T, evt sliceContext.SliceEvt)
	}{
		{
			name: "foreground app",
			path: "/events/foreground-app",
			body: `{"uid":1000,"bundleName":"com.example.game","state":2,"focused":true}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.ForegroundAppChangedEvt)
				require.True(t, ok)
				assert.Equal(t, 1000, e.Uid)
				assert.Equal(t, "com.example.game", e.BundleName)
				assert.Equal(t, sliceContext.APP_STATE_FOREGROUND, e.State)
				assert.True(t, e.Focused)
			},
		},
		{
			name: "ursp",
			path: "/events/ursp",
			body: `{"plmn":"46001"}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.UrspChangedEvt)
				require.True(t, ok)
				assert.Equal(t, map[string]string{"plmn": "46001"}, e.Data)
			},
		},
		{
			name: "airplane off",
			path: "/events/airplane",
			body: `{"on":false}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.AirModeChangedEvt)
				require.True(t, ok)
				assert.False(t, e.On)
			},
		},
		{
			name: "wifi",
			path: "/events/wifi",
			body: `{"state":4}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.WifiConnChangedEvt)
				require.True(t, ok)
				assert.Equal(t, sliceContext.WIFI_STATE_CONNECTED, e.State)
			},
		},
		{
			name: "vpn",
			path: "/events/vpn",
			body: `{"on":true}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.VpnModeChangedEvt)
				require.True(t, ok)
				assert.True(t, e.On)
			},
		},
		{
			name: "screen",
			path: "/events/screen",
			body: `{"on":true}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				_, ok := evt.(*sliceContext.ScreenStateChangedEvt)
				assert.True(t, ok)
			},
		},
		{
			name: "sa state",
			path: "/events/sa-state",
			body: `{"on":true}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				_, ok := evt.(*sliceContext.SaStateChangedEvt)
				assert.True(t, ok)
			},
		},
		{
			name: "activate result",
			path: "/events/activate-result",
			body: `{"result":1,"dnn":"game","snssai":"01000002","pduSessionType":1,"sscMode":1}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.NetworkActivateResultEvt)
				require.True(t, ok)
				assert.Equal(t, "game", e.Dnn)
				assert.Equal(t, "01000002", e.SNssai)
				assert.Equal(t, uint8(1), e.SscMode)
			},
		},
		{
			name: "default data",
			path: "/events/default-data",
			body: `{"on":false}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.DefaultDataChangedEvt)
				require.True(t, ok)
				assert.False(t, e.OnMainCard)
			},
		},
		{
			name: "mobile data",
			path: "/events/mobile-data",
			body: `{"on":true}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.MobileDataChangedEvt)
				require.True(t, ok)
				assert.True(t, e.On)
			},
		},
		{
			name: "dnn network request",
			path: "/events/network-request",
			body: `{"uid":1000,"dnn":"ims"}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.NetworkRequestedEvt)
				require.True(t, ok)
				assert.Equal(t, 1000, e.Uid)
				assert.Equal(t, "ims", e.Dnn)
				assert.Equal(t, sliceContext.CCT_INVALID, e.Cct)
			},
		},
		{
			name: "cct network request",
			path: "/events/network-request",
			body: `{"uid":1000,"cct":2}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.NetworkRequestedEvt)
				require.True(t, ok)
				assert.Empty(t, e.Dnn)
				assert.Equal(t, sliceContext.CCT_MMS, e.Cct)
			},
		},
		{
			name: "uid removed",
			path: "/events/uid-removed",
			body: `{"bundleName":"com.example.game"}`,
			check: func(t *testing.T, evt sliceContext.SliceEvt) {
				e, ok := evt.(*sliceContext.UidRemovedEvt)
				require.True(t, ok)
				assert.Equal(t, "com.example.game", e.BundleName)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, rec := newTestServer()
			w := doRequest(s, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
			require.Len(t, rec.events, 1)
			tc.check(t, rec.events[0])
		})
	}
}

func TestDnsResult(t *testing.T) {
	s, rec := newTestServer()
	body := `{"uid":1000,"fqdn":"video.example.com","addresses":[` +
		`{"type":0,"addr":"10.0.0.1"},{"type":1,"addr":"2001:db8::1"}]}`
	w := doRequest(s, http.MethodPost, "/events/dns-result", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, rec.events, 1)

	e, ok := rec.events[0].(*sliceContext.DnsResultEvt)
	require.True(t, ok)
	assert.Equal(t, "video.example.com", e.Fqdn)
	assert.Equal(t, []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("2001:db8::1"),
	}, e.Addrs)
}

func TestBadRequests(t *testing.T) {
	testCases := []struct {
		name string
		path string
		body string
	}{
		{"missing bundle", "/events/foreground-app", `{"uid":1000,"state":2}`},
		{"malformed json", "/events/ursp", `{"plmn":`},
		{"missing switch", "/events/airplane", `{}`},
		{"missing wifi state", "/events/wifi", `{}`},
		{"bad address", "/events/dns-result", `{"fqdn":"a.example.com","addresses":[{"type":0,"addr":"x"}]}`},
		{"family mismatch", "/events/dns-result", `{"fqdn":"a.example.com","addresses":[{"type":0,"addr":"::1"}]}`},
		{"unknown family", "/events/dns-result", `{"fqdn":"a.example.com","addresses":[{"type":9,"addr":"::1"}]}`},
		{"missing family", "/events/dns-result", `{"fqdn":"a.example.com","addresses":[{"addr":"::1"}]}`},
		{"missing bundle name", "/events/uid-removed", `{}`},
		{"network request without dnn or cct", "/events/network-request", `{"uid":1000}`},
		{"missing default data switch", "/events/default-data", `{}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, rec := newTestServer()
			w := doRequest(s, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, rec.events)
		})
	}
}

func TestSliceServerUnavailable(t *testing.T) {
	s, rec := newTestServer()
	rec.accept = false
	w := doRequest(s, http.MethodPost, "/events/vpn", `{"on":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(s, http.MethodGet, "/slices", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetSlices(t *testing.T) {
	s, _ := newTestServer()
	w := doRequest(s, http.MethodGet, "/slices", "")
	require.Equal(t, http.StatusOK, w.Code)

	var slots []sliceContext.SliceDump
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
	require.Len(t, slots, 1)
	assert.Equal(t, 42, slots[0].NetId)
}

func TestGetSlicesTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(":0", func(sliceContext.SliceEvt) bool { return true })
	s.dumpTimeout = 10 * time.Millisecond
	w := doRequest(s, http.MethodGet, "/slices", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestGetRsdByNetCap(t *testing.T) {
	s, _ := newTestServer()
	w := doRequest(s, http.MethodGet, "/rsd/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dnn":"game","snssai":"01000002"}`, w.Body.String())

	w = doRequest(s, http.MethodGet, "/rsd/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())

	for _, netCap := range []string{"0", "7", "slice"} {
		w = doRequest(s, http.MethodGet, "/rsd/"+netCap, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, netCap)
	}
}
