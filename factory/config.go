// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/davecgh/go-spew/spew"
	"github.com/omec-project/slicemanager/logger"
	utilLogger "github.com/omec-project/util/logger"
)

const (
	SLICEMGR_EXPECTED_CONFIG_VERSION = "1.0.0"

	DefaultNetlinkProtocol       = 49
	DefaultRequestNetworkTimeout = 10 * time.Second
	DefaultOamAddress            = ":8090"
	MaxSliceInterfaces           = 6
)

type Config struct {
	Info          *Info          `yaml:"info" valid:"required"`
	Configuration *Configuration `yaml:"configuration" valid:"required"`
	Logger        *Logger        `yaml:"logger" valid:"-"`
}

func (c *Config) Validate() (bool, error) {
	if info := c.Info; info != nil {
		if result, err := info.Validate(); err != nil {
			return result, err
		}
	}

	if configuration := c.Configuration; configuration != nil {
		if result, err := configuration.Validate(); err != nil {
			return result, err
		}
	}

	result, err := govalidator.ValidateStruct(c)
	return result, appendInvalid(err)
}

func (c *Config) Print() {
	spew.Config.Indent = "\t"
	str := spew.Sdump(c.Configuration)
	logger.CfgLog.Infof("==================================================")
	logger.CfgLog.Infof("%s", str)
	logger.CfgLog.Infof("==================================================")
}

type Info struct {
	Version     string `yaml:"version,omitempty" valid:"required,in(1.0.0)"`
	Description string `yaml:"description,omitempty" valid:"type(string)"`
}

func (i *Info) Validate() (bool, error) {
	result, err := govalidator.ValidateStruct(i)
	return result, appendInvalid(err)
}

type Logger struct {
	SliceManager *utilLogger.LogSetting `yaml:"SliceManager,omitempty"`
	Util         *utilLogger.LogSetting `yaml:"Util,omitempty"`
}

type Configuration struct {
	NrSliceSupported      bool             `yaml:"nrSliceSupported" valid:"type(bool)"`
	NetlinkProtocol       int              `yaml:"netlinkProtocol,omitempty" valid:"optional"`
	RequestNetworkTimeout time.Duration    `yaml:"requestNetworkTimeout,omitempty" valid:"optional"`
	Plmn                  string           `yaml:"plmn" valid:"required,numeric,stringlength(5|6)"`
	WifiInterface         string           `yaml:"wifiInterface,omitempty" valid:"optional"`
	SliceInterfaces       []SliceInterface `yaml:"sliceInterfaces,omitempty" valid:"optional"`
	WhiteList             WhiteList        `yaml:"whiteList"`
	CooperativeApps       []string         `yaml:"cooperativeApps,omitempty" valid:"optional"`
	ActiveTriggeringApps  []string         `yaml:"activeTriggeringApps,omitempty" valid:"optional"`
	Bundles               []Bundle         `yaml:"bundles,omitempty" valid:"optional"`
	Ursp                  []UrspRule       `yaml:"ursp,omitempty" valid:"optional"`
	Environment           Environment      `yaml:"environment"`
	OamAddress            string           `yaml:"oamAddress,omitempty" valid:"optional"`
}

func (c *Configuration) Validate() (bool, error) {
	if c.NetlinkProtocol < 0 || c.NetlinkProtocol > 255 {
		return false, fmt.Errorf("invalid netlinkProtocol: %d", c.NetlinkProtocol)
	}

	if len(c.SliceInterfaces) > MaxSliceInterfaces {
		return false, fmt.Errorf("invalid sliceInterfaces: %d entries, at most %d",
			len(c.SliceInterfaces), MaxSliceInterfaces)
	}
	for _, sliceIf := range c.SliceInterfaces {
		if result, err := sliceIf.Validate(); err != nil {
			return result, err
		}
	}

	for _, bundle := range c.Bundles {
		if result, err := bundle.Validate(); err != nil {
			return result, err
		}
	}

	for index, rule := range c.Ursp {
		if result, err := rule.Validate(); err != nil {
			return result, fmt.Errorf("ursp[%d]: %w", index, err)
		}
	}

	result, err := govalidator.ValidateStruct(c)
	return result, appendInvalid(err)
}

// SliceInterface maps a slice network capability (1..6) to the data interface carrying it.
type SliceInterface struct {
	NetCap int    `yaml:"netCap" valid:"required,range(1|6)"`
	IfName string `yaml:"ifName" valid:"required"`
}

func (s *SliceInterface) Validate() (bool, error) {
	result, err := govalidator.ValidateStruct(s)
	return result, appendInvalid(err)
}

// WhiteList entries are comma separated, as delivered by the policy layer.
type WhiteList struct {
	OsAppIds string `yaml:"osAppIds,omitempty" valid:"optional"`
	Dnns     string `yaml:"dnns,omitempty" valid:"optional"`
	Fqdns    string `yaml:"fqdns,omitempty" valid:"optional"`
	Ccts     string `yaml:"ccts,omitempty" valid:"optional"`
}

type Bundle struct {
	Name string `yaml:"name" valid:"required"`
	Uids []int  `yaml:"uids" valid:"required"`
}

func (b *Bundle) Validate() (bool, error) {
	for _, uid := range b.Uids {
		if uid < 0 {
			return false, fmt.Errorf("invalid uid %d for bundle %s", uid, b.Name)
		}
	}
	result, err := govalidator.ValidateStruct(b)
	return result, appendInvalid(err)
}

type Environment struct {
	SaState               bool `yaml:"saState"`
	DefaultDataOnMainCard bool `yaml:"defaultDataOnMainCard"`
	MobileDataEnabled     bool `yaml:"mobileDataEnabled"`
	ScreenOn              bool `yaml:"screenOn"`
}

type UrspRule struct {
	Precedence                uint8                          `yaml:"precedence"`
	TrafficDescriptor         UrspTrafficDescriptor          `yaml:"trafficDescriptor"`
	RouteSelectionDescriptors []UrspRouteSelectionDescriptor `yaml:"routeSelectionDescriptors" valid:"required"`
}

func (r *UrspRule) Validate() (bool, error) {
	if len(r.RouteSelectionDescriptors) == 0 {
		return false, fmt.Errorf("precedence %d has no route selection descriptor", r.Precedence)
	}
	if result, err := r.TrafficDescriptor.Validate(); err != nil {
		return result, err
	}
	for _, rsd := range r.RouteSelectionDescriptors {
		if result, err := rsd.Validate(); err != nil {
			return result, err
		}
	}
	return true, nil
}

type UrspTrafficDescriptor struct {
	MatchAll    bool     `yaml:"matchAll,omitempty"`
	AppIds      []string `yaml:"appIds,omitempty"`
	Dnns        []string `yaml:"dnns,omitempty"`
	Fqdns       []string `yaml:"fqdns,omitempty"`
	Ipv4Addrs   []string `yaml:"ipv4Addrs,omitempty"`
	Ipv6Addrs   []string `yaml:"ipv6Addrs,omitempty"`
	ProtocolIds []string `yaml:"protocolIds,omitempty"`
	RemotePorts []string `yaml:"remotePorts,omitempty"`
	Ccts        []int    `yaml:"ccts,omitempty"`
}

func (t *UrspTrafficDescriptor) Validate() (bool, error) {
	for _, prefix := range t.Ipv4Addrs {
		p, err := netip.ParsePrefix(prefix)
		if err != nil || !p.Addr().Is4() {
			return false, fmt.Errorf("invalid ipv4Addrs entry: %s", prefix)
		}
	}
	for _, prefix := range t.Ipv6Addrs {
		p, err := netip.ParsePrefix(prefix)
		if err != nil || !p.Addr().Is6() {
			return false, fmt.Errorf("invalid ipv6Addrs entry: %s", prefix)
		}
	}
	for _, id := range t.ProtocolIds {
		if v, err := strconv.Atoi(id); err != nil || v < 0 || v > 255 {
			return false, fmt.Errorf("invalid protocolIds entry: %s", id)
		}
	}
	for _, port := range t.RemotePorts {
		for _, part := range strings.SplitN(port, "-", 2) {
			if v, err := strconv.Atoi(part); err != nil || v < 0 || v > 65535 {
				return false, fmt.Errorf("invalid remotePorts entry: %s", port)
			}
		}
	}
	return true, nil
}

type UrspRouteSelectionDescriptor struct {
	SscMode        uint8  `yaml:"sscMode" valid:"range(1|3)"`
	SNssai         string `yaml:"sNssai,omitempty" valid:"optional,hexadecimal"`
	Dnn            string `yaml:"dnn,omitempty" valid:"optional"`
	PduSessionType *int   `yaml:"pduSessionType,omitempty" valid:"optional"`
}

func (r *UrspRouteSelectionDescriptor) Validate() (bool, error) {
	result, err := govalidator.ValidateStruct(r)
	return result, appendInvalid(err)
}

func (c *Config) getVersion() string {
	if c.Info != nil && c.Info.Version != "" {
		return c.Info.Version
	}
	return ""
}

func (c *Configuration) GetNetlinkProtocol() int {
	if c.NetlinkProtocol == 0 {
		return DefaultNetlinkProtocol
	}
	return c.NetlinkProtocol
}

func (c *Configuration) GetRequestNetworkTimeout() time.Duration {
	if c.RequestNetworkTimeout <= 0 {
		return DefaultRequestNetworkTimeout
	}
	return c.RequestNetworkTimeout
}

func (c *Configuration) GetOamAddress() string {
	if c.OamAddress == "" {
		return DefaultOamAddress
	}
	return c.OamAddress
}

func appendInvalid(err error) error {
	var errs govalidator.Errors

	if err == nil {
		return nil
	}

	es := err.(govalidator.Errors).Errors()
	for _, e := range es {
		errs = append(errs, fmt.Errorf("invalid %w", e))
	}

	return error(errs)
}
