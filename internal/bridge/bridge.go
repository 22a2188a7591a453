package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/robfig/cron/v3"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/keys"
	"RedisVSCode-Webview/internal/logger"
)

// Actions understood from and sent to the host
const (
	ActionSelectKey              = "SelectKey"
	ActionRefreshTree            = "RefreshTree"
	ActionGetKeysMetadata        = "GetKeysMetadata"
	ActionShowInformationMessage = "ShowInformationMessage"
	ActionShowErrorMessage       = "ShowErrorMessage"
	ActionStateChanged           = "StateChanged"
	ActionSelectedKey            = "SelectedKey"
	ActionSendTelemetry          = "SendTelemetry"
)

const maxMessageSize = 16 << 20

// Message is one line of the host channel
type Message struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// TelemetryData is the payload of SendTelemetry
type TelemetryData struct {
	Event     keys.EventName `json:"event"`
	EventData map[string]any `json:"eventData"`
}

// Bridge exchanges newline-delimited JSON messages with the host process.
// It is the session's Notifier, so it must exist before the session does;
// Attach connects the two.
type Bridge struct {
	mu      sync.Mutex
	w       *json.Encoder
	session *keys.Session
	unsub   func()
	cron    *cron.Cron
	wg      sync.WaitGroup
}

func New(w io.Writer) *Bridge {
	return &Bridge{w: json.NewEncoder(w)}
}

// Attach routes incoming actions to session and streams its state
func (b *Bridge) Attach(session *keys.Session) {
	b.session = session
	b.unsub = session.Store.Subscribe(func(st keys.State) {
		b.post(ActionStateChanged, st)
	})
}

// Post sends one message to the host
func (b *Bridge) Post(action string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化消息失败：%w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Encode(Message{Action: action, Data: raw})
}

func (b *Bridge) post(action string, data any) {
	if err := b.Post(action, data); err != nil {
		logger.Error(err, "发送消息失败：action=%s", action)
	}
}

func (b *Bridge) Info(msg string) { b.post(ActionShowInformationMessage, msg) }

func (b *Bridge) Error(msg string) { b.post(ActionShowErrorMessage, msg) }

// SendTelemetry forwards a scan event to the host
func (b *Bridge) SendTelemetry(event keys.EventName, data map[string]any) {
	b.post(ActionSendTelemetry, TelemetryData{Event: event, EventData: data})
}

// SelectKey selects name locally and tells the host about it
func (b *Bridge) SelectKey(name connection.RedisString) {
	if b.session.Store.SelectKey(name) {
		b.post(ActionSelectedKey, name)
	}
}

// StartAutoRefresh refreshes the tree on the given cron schedule until Run returns
func (b *Bridge) StartAutoRefresh(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		b.dispatch(ctx, Message{Action: ActionRefreshTree})
	}); err != nil {
		return fmt.Errorf("无效的自动刷新表达式 %q: %w", spec, err)
	}
	b.cron = c
	c.Start()
	logger.Infof("已开启自动刷新：%s", spec)
	return nil
}

// Run reads messages from r until EOF or ctx is done. Scans run in the
// background so a newer RefreshTree can supersede a pending one.
func (b *Bridge) Run(ctx context.Context, r io.Reader) error {
	defer b.stop()

	lines := make(chan []byte)
	errCh := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxMessageSize)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errCh <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case line := <-lines:
			if len(line) == 0 {
				continue
			}
			var msg Message
			if err := json.Unmarshal(line, &msg); err != nil {
				logger.Warnf("忽略无法解析的消息：%v", err)
				continue
			}
			b.dispatch(ctx, msg)
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context, msg Message) {
	switch msg.Action {
	case ActionSelectKey:
		var name connection.RedisString
		if err := json.Unmarshal(msg.Data, &name); err != nil {
			logger.Warnf("SelectKey 数据格式错误：%v", err)
			return
		}
		b.SelectKey(name)
	case ActionGetKeysMetadata:
		var names []connection.RedisString
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &names); err != nil {
				logger.Warnf("GetKeysMetadata 数据格式错误：%v", err)
				return
			}
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if len(names) == 0 {
				_ = b.session.FillMetadata(ctx)
				return
			}
			_ = b.session.Metadata.Fetch(ctx, names, keys.MetadataHooks{})
		}()
	case ActionRefreshTree:
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			_ = b.session.Refresh(ctx, "refresh")
		}()
	default:
		logger.Warnf("忽略未知消息：action=%s", msg.Action)
	}
}

func (b *Bridge) stop() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
	b.wg.Wait()
	if b.unsub != nil {
		b.unsub()
	}
}
