// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
info:
  version: 1.0.0
  description: slice manager test configuration
configuration:
  nrSliceSupported: true
  plmn: "46001"
  wifiInterface: wlan0
  sliceInterfaces:
    - netCap: 1
      ifName: rmnet_slice1
    - netCap: 2
      ifName: rmnet_slice2
  whiteList:
    osAppIds: "1234567890123456com.example.game"
    dnns: "game,video"
  bundles:
    - name: com.example.game
      uids: [1000, 1001]
  ursp:
    - precedence: 5
      trafficDescriptor:
        appIds: ["1234567890123456com.example.game"]
      routeSelectionDescriptors:
        - sscMode: 1
          sNssai: "01000002"
          dnn: game
    - precedence: 20
      trafficDescriptor:
        ipv4Addrs: ["10.1.0.0/16"]
        protocolIds: ["6"]
        remotePorts: ["443", "8000-8080"]
      routeSelectionDescriptors:
        - sscMode: 1
          sNssai: "01000005"
          dnn: enterprise
  environment:
    saState: true
    defaultDataOnMainCard: true
    mobileDataEnabled: true
    screenOn: true
logger:
  SliceManager:
    debugLevel: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slicemgrcfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInitConfigFactory(t *testing.T) {
	require.NoError(t, InitConfigFactory(writeConfig(t, testConfig)))
	require.NoError(t, CheckConfigVersion())

	ok, err := SliceMgrConfig.Validate()
	require.NoError(t, err)
	assert.True(t, ok)

	cfg := SliceMgrConfig.Configuration
	require.NotNil(t, cfg)
	assert.True(t, cfg.NrSliceSupported)
	assert.Equal(t, "46001", cfg.Plmn)
	assert.Len(t, cfg.SliceInterfaces, 2)
	assert.Equal(t, []int{1000, 1001}, cfg.Bundles[0].Uids)
	require.Len(t, cfg.Ursp, 2)
	assert.Equal(t, "enterprise", cfg.Ursp[1].RouteSelectionDescriptors[0].Dnn)
	assert.Equal(t, "debug", SliceMgrConfig.Logger.SliceManager.DebugLevel)

	assert.Equal(t, DefaultNetlinkProtocol, cfg.GetNetlinkProtocol())
	assert.Equal(t, DefaultRequestNetworkTimeout, cfg.GetRequestNetworkTimeout())
	assert.Equal(t, DefaultOamAddress, cfg.GetOamAddress())
}

func TestInitConfigFactoryMissingFile(t *testing.T) {
	assert.Error(t, InitConfigFactory(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestCheckConfigVersion(t *testing.T) {
	require.NoError(t, InitConfigFactory(writeConfig(t, "info:\n  version: 0.9.0\n")))
	assert.Error(t, CheckConfigVersion())
}

func TestConfigurationGetters(t *testing.T) {
	cfg := &Configuration{
		NetlinkProtocol:       31,
		RequestNetworkTimeout: 3 * time.Second,
		OamAddress:            "127.0.0.1:9000",
	}
	assert.Equal(t, 31, cfg.GetNetlinkProtocol())
	assert.Equal(t, 3*time.Second, cfg.GetRequestNetworkTimeout())
	assert.Equal(t, "127.0.0.1:9000", cfg.GetOamAddress())
}

func validConfiguration() *Configuration {
	return &Configuration{
		Plmn: "46001",
		SliceInterfaces: []SliceInterface{
			{NetCap: 1, IfName: "rmnet_slice1"},
		},
		Bundles: []Bundle{{Name: "com.example.game", Uids: []int{1000}}},
		Ursp: []UrspRule{
			{
				Precedence: 1,
				TrafficDescriptor: UrspTrafficDescriptor{
					Fqdns: []string{"video.example.com"},
				},
				RouteSelectionDescriptors: []UrspRouteSelectionDescriptor{
					{SscMode: 1, SNssai: "01000004", Dnn: "video"},
				},
			},
		},
	}
}

func TestConfigurationValidate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(c *Configuration)
		wantErr bool
	}{
		{"valid", func(c *Configuration) {}, false},
		{"bad plmn", func(c *Configuration) { c.Plmn = "46" }, true},
		{"bad netlink protocol", func(c *Configuration) { c.NetlinkProtocol = 300 }, true},
		{"net cap out of range", func(c *Configuration) { c.SliceInterfaces[0].NetCap = 7 }, true},
		{"missing interface name", func(c *Configuration) { c.SliceInterfaces[0].IfName = "" }, true},
		{"too many interfaces", func(c *Configuration) {
			c.SliceInterfaces = make([]SliceInterface, MaxSliceInterfaces+1)
			for i := range c.SliceInterfaces {
				c.SliceInterfaces[i] = SliceInterface{NetCap: 1, IfName: "rmnet"}
			}
		}, true},
		{"negative uid", func(c *Configuration) { c.Bundles[0].Uids = []int{-1} }, true},
		{"rule without route", func(c *Configuration) { c.Ursp[0].RouteSelectionDescriptors = nil }, true},
		{"bad ipv4 prefix", func(c *Configuration) {
			c.Ursp[0].TrafficDescriptor.Ipv4Addrs = []string{"2001:db8::/32"}
		}, true},
		{"bad protocol id", func(c *Configuration) {
			c.Ursp[0].TrafficDescriptor.ProtocolIds = []string{"256"}
		}, true},
		{"bad port range", func(c *Configuration) {
			c.Ursp[0].TrafficDescriptor.RemotePorts = []string{"80-x"}
		}, true},
		{"bad ssc mode", func(c *Configuration) {
			c.Ursp[0].RouteSelectionDescriptors[0].SscMode = 4
		}, true},
		{"bad snssai", func(c *Configuration) {
			c.Ursp[0].RouteSelectionDescriptors[0].SNssai = "slice"
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfiguration()
			tc.modify(c)
			_, err := c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
