// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/omec-project/slicemanager/kernel/message"
	"github.com/omec-project/slicemanager/logger"
	"github.com/omec-project/slicemanager/util"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"
)

var (
	ErrNotRegistered     = errors.New("kernel proxy is not registered")
	ErrInvalidSendLength = errors.New("invalid kernel payload length")
)

// ProxyState is the life cycle of the kernel proxy
type ProxyState int

const (
	StateUninitialized ProxyState = iota
	StateRegistered
	StateReceiving
	StateClosed
)

func (s ProxyState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateRegistered:
		return "REGISTERED"
	case StateReceiving:
		return "RECEIVING"
	default:
		return "CLOSED"
	}
}

// Sub modules that consume kernel records
const (
	ModuleSliceManager = iota
)

// KernelMsgHandler consumes one kernel record. The record belongs to the
// handler.
type KernelMsgHandler func(data []byte)

// netlinkSocket is the part of *nl.NetlinkSocket the proxy needs.
type netlinkSocket interface {
	Send(request *nl.NetlinkRequest) error
	Receive() ([]syscall.NetlinkMessage, *unix.SockaddrNetlink, error)
	SetReceiveTimeout(timeout *unix.Timeval) error
	Close()
}

func openNetlinkSocket(protocol int) (netlinkSocket, error) {
	return nl.Subscribe(protocol)
}

// KernelProxy owns the netlink socket towards the slice kernel module.
type KernelProxy struct {
	mu       sync.RWMutex
	protocol int
	state    ProxyState
	sock     netlinkSocket
	stop     chan struct{}
	// message type -> module id -> handler
	handlers map[int16]map[int]KernelMsgHandler

	openSocket func(protocol int) (netlinkSocket, error)
}

func NewKernelProxy(protocol int) *KernelProxy {
	return &KernelProxy{
		protocol:   protocol,
		handlers:   make(map[int16]map[int]KernelMsgHandler),
		openSocket: openNetlinkSocket,
	}
}

func (p *KernelProxy) State() ProxyState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// RegisterHandler routes kernel records of msgTypes to handler. A module
// registering again replaces its previous message types.
func (p *KernelProxy) RegisterHandler(moduleId int, handler KernelMsgHandler, msgTypes []int16) {
	if handler == nil || len(msgTypes) == 0 {
		logger.KernelLog.Errorln("invalid kernel handler registration")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unregisterLocked(moduleId)
	for _, msgType := range msgTypes {
		if p.handlers[msgType] == nil {
			p.handlers[msgType] = make(map[int]KernelMsgHandler)
		}
		p.handlers[msgType][moduleId] = handler
	}
}

func (p *KernelProxy) UnregisterHandler(moduleId int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unregisterLocked(moduleId)
}

func (p *KernelProxy) unregisterLocked(moduleId int) {
	for msgType, modules := range p.handlers {
		delete(modules, moduleId)
		if len(modules) == 0 {
			delete(p.handlers, msgType)
		}
	}
}

// Run opens the socket, registers with the kernel module and starts the
// receiver. The receiver stops on Stop or when ctx is done.
func (p *KernelProxy) Run(ctx context.Context, wg *sync.WaitGroup) error {
	p.mu.Lock()
	if p.sock == nil {
		sock, err := p.openSocket(p.protocol)
		if err != nil {
			p.mu.Unlock()
			logger.KernelLog.Errorf("open netlink socket (protocol %d) failed: %+v", p.protocol, err)
			return fmt.Errorf("kernel proxy run failed: %w", err)
		}
		p.sock = sock
	}
	if err := p.sendLocked(message.NETWORKSLICE_REG_MSG, nil); err != nil {
		p.closeLocked()
		p.mu.Unlock()
		logger.KernelLog.Errorf("register with kernel failed: %+v", err)
		return fmt.Errorf("kernel proxy run failed: %w", err)
	}
	p.state = StateRegistered
	if err := p.sock.SetReceiveTimeout(&unix.Timeval{Sec: 1}); err != nil {
		logger.KernelLog.Warnf("set netlink receive timeout failed: %+v", err)
	}
	sock := p.sock
	stop := make(chan struct{})
	p.stop = stop
	p.state = StateReceiving
	p.mu.Unlock()

	logger.KernelLog.Infof("kernel proxy registered (protocol %d)", p.protocol)
	wg.Add(1)
	go p.receiver(ctx, sock, stop, wg)
	return nil
}

func (p *KernelProxy) receiver(ctx context.Context, sock netlinkSocket, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer util.RecoverWithLog(logger.KernelLog)
	defer func() {
		logger.KernelLog.Infoln("kernel receiver stopped")
		wg.Done()
	}()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			p.Stop()
			return
		default:
		}

		msgs, _, err := sock.Receive()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, unix.EAGAIN) ||
				errors.Is(err, unix.EINTR) {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			logger.KernelLog.Errorf("netlink receive failed: %+v", err)
			continue
		}
		for _, m := range msgs {
			p.dispatch(m.Data)
		}
	}
}

func isValidDataLen(n int) bool {
	return n >= message.KernelMsgHeaderLen && n <= message.NETLINK_BUFFER_MAX_SIZE
}

func (p *KernelProxy) dispatch(data []byte) {
	if !isValidDataLen(len(data)) {
		logger.KernelLog.Errorf("drop kernel record with invalid length %d", len(data))
		return
	}
	offset := 0
	msgType, err := message.GetShort(data, &offset, message.HeaderOrder)
	if err != nil {
		logger.KernelLog.Errorf("drop kernel record: %+v", err)
		return
	}

	p.mu.RLock()
	handlers := make([]KernelMsgHandler, 0, len(p.handlers[msgType]))
	for _, h := range p.handlers[msgType] {
		handlers = append(handlers, h)
	}
	p.mu.RUnlock()

	if len(handlers) == 0 {
		logger.KernelLog.Debugf("no handler for kernel record type %d", msgType)
		return
	}
	logger.KernelLog.Debugf("kernel record type %d:\n%s", msgType, hex.Dump(data))
	for _, h := range handlers {
		record := make([]byte, len(data))
		copy(record, data)
		h(record)
	}
}

// SendDataToKernel wraps one kernel record in a NETWORKSLICE_DATA_MSG
// netlink message. The socket is reopened when it was closed.
func (p *KernelProxy) SendDataToKernel(payload []byte) error {
	if len(payload) == 0 || len(payload) > message.NETLINK_BUFFER_MAX_SIZE {
		return fmt.Errorf("payload length %d: %w", len(payload), ErrInvalidSendLength)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sock == nil {
		sock, err := p.openSocket(p.protocol)
		if err != nil {
			return fmt.Errorf("reopen netlink socket: %w", err)
		}
		p.sock = sock
		logger.KernelLog.Infoln("netlink socket reopened")
	}
	if err := p.sendLocked(message.NETWORKSLICE_DATA_MSG, payload); err != nil {
		logger.KernelLog.Errorf("send to kernel failed: %+v", err)
		return err
	}
	return nil
}

func (p *KernelProxy) sendLocked(nlType uint16, payload []byte) error {
	if p.sock == nil {
		return ErrNotRegistered
	}
	req := nl.NewNetlinkRequest(int(nlType), 0)
	req.Pid = uint32(os.Getpid())
	if len(payload) != 0 {
		req.AddRawData(payload)
	}
	return p.sock.Send(req)
}

// Stop closes the socket. Run may be called again afterwards.
func (p *KernelProxy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.closeLocked()
	logger.KernelLog.Infoln("kernel proxy closed")
}

func (p *KernelProxy) closeLocked() {
	if p.sock != nil {
		p.sock.Close()
		p.sock = nil
	}
	p.state = StateClosed
}
