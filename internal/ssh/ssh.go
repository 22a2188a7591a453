package ssh

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"

	"golang.org/x/crypto/ssh"
)

// LocalForwarder listens on a loopback port and forwards every accepted
// connection to a remote address through one SSH client.
type LocalForwarder struct {
	LocalAddr  string
	RemoteAddr string

	key      string
	client   *ssh.Client
	listener net.Listener
	wg       sync.WaitGroup
	once     sync.Once
}

var (
	forwardersMu sync.Mutex
	forwarders   = map[string]*LocalForwarder{}
)

func forwarderKey(cfg connection.SSHConfig, host string, port int) string {
	return fmt.Sprintf("%s@%s:%d|%s|%s:%d", cfg.User, cfg.Host, cfg.Port, cfg.KeyPath, host, port)
}

// GetOrCreateLocalForwarder returns the running forwarder for the given SSH
// hop and target, starting one when needed.
func GetOrCreateLocalForwarder(cfg connection.SSHConfig, host string, port int) (*LocalForwarder, error) {
	key := forwarderKey(cfg, host, port)

	forwardersMu.Lock()
	defer forwardersMu.Unlock()
	if f, ok := forwarders[key]; ok {
		return f, nil
	}

	client, err := connectSSH(cfg)
	if err != nil {
		return nil, fmt.Errorf("SSH 连接失败：%w", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("监听本地端口失败：%w", err)
	}

	f := &LocalForwarder{
		LocalAddr:  ln.Addr().String(),
		RemoteAddr: net.JoinHostPort(host, fmt.Sprint(port)),
		key:        key,
		client:     client,
		listener:   ln,
	}
	f.wg.Add(1)
	go f.serve()
	forwarders[key] = f
	logger.Infof("SSH 隧道已建立：%s -> %s (via %s:%d)", f.LocalAddr, f.RemoteAddr, cfg.Host, cfg.Port)
	return f, nil
}

// CloseAll stops every forwarder
func CloseAll() {
	forwardersMu.Lock()
	list := make([]*LocalForwarder, 0, len(forwarders))
	for _, f := range forwarders {
		list = append(list, f)
	}
	forwardersMu.Unlock()

	for _, f := range list {
		f.Close()
	}
}

// Close stops accepting connections and tears down the SSH client
func (f *LocalForwarder) Close() error {
	var err error
	f.once.Do(func() {
		forwardersMu.Lock()
		if forwarders[f.key] == f {
			delete(forwarders, f.key)
		}
		forwardersMu.Unlock()

		err = f.listener.Close()
		if cerr := f.client.Close(); err == nil {
			err = cerr
		}
		f.wg.Wait()
	})
	return err
}

func (f *LocalForwarder) serve() {
	defer f.wg.Done()
	for {
		local, err := f.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Warnf("SSH 隧道停止接受连接：%v", err)
			}
			return
		}
		go f.pipe(local)
	}
}

func (f *LocalForwarder) pipe(local net.Conn) {
	defer local.Close()
	remote, err := f.client.Dial("tcp", f.RemoteAddr)
	if err != nil {
		logger.Warnf("SSH 隧道连接目标失败：%s err=%v", f.RemoteAddr, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

func connectSSH(cfg connection.SSHConfig) (*ssh.Client, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("读取私钥失败：%w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("解析私钥失败：%w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("未配置 SSH 认证方式")
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	sshConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against known_hosts
		Timeout:         5 * time.Second,
	}
	return ssh.Dial("tcp", net.JoinHostPort(cfg.Host, fmt.Sprint(port)), sshConfig)
}
