package realtime

import (
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const heartbeatInterval = 30 * time.Second

// Client realtime 服务的 websocket 客户端。
// 所有入站回调通过 post 投递到应用事件循环，客户端内部不并发触达业务状态。
type Client struct {
	conn *websocket.Conn
	post func(func())

	writeMu sync.Mutex

	mu          sync.Mutex
	channels    map[string]*Channel
	pendingAcks map[string]func(ok bool, response json.RawMessage)
	nextRef     uint64
	accessToken string

	done chan struct{}
}

// Dial 建立 websocket 连接并启动读循环与心跳
func Dial(ctx context.Context, baseURL, apikey string, post func(func())) (*Client, error) {
	endpoint, err := websocketURL(baseURL, apikey)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	c := &Client{
		conn:        conn,
		post:        post,
		channels:    make(map[string]*Channel),
		pendingAcks: make(map[string]func(bool, json.RawMessage)),
		done:        make(chan struct{}),
	}

	go c.readPump()
	go c.heartbeatLoop()

	log.Info("Realtime 连接已建立", "endpoint", baseURL)
	return c, nil
}

func websocketURL(baseURL, apikey string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/realtime/v1/websocket"
	q := u.Query()
	q.Set("apikey", apikey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SetAuth 设置用户 access token，后续 join 携带，行级权限由服务端裁决
func (c *Client) SetAuth(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Channel 获取或创建指定主题的频道
func (c *Client) Channel(topic string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.channels[topic]; ok {
		return ch
	}
	ch := newChannel(c, topic)
	c.channels[topic] = ch
	return ch
}

// Close 关闭连接
func (c *Client) Close() {
	select {
	case <-c.done:
		return
	default:
	}
	close(c.done)
	_ = c.conn.Close()
}

func (c *Client) ref() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextRef++
	return strconv.FormatUint(c.nextRef, 10)
}

func (c *Client) send(f *frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// push 发送帧并登记应答回调
func (c *Client) push(topic, event string, payload any, onReply func(ok bool, response json.RawMessage)) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ref := c.ref()
	if onReply != nil {
		c.mu.Lock()
		c.pendingAcks[ref] = onReply
		c.mu.Unlock()
	}

	return c.send(&frame{Topic: topic, Event: event, Payload: raw, Ref: ref})
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.push(heartbeatTopic, evtHeartbeat, map[string]any{}, nil); err != nil {
				log.Warn("Realtime 心跳发送失败", "err", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump 读循环：解析帧并投递到事件循环分发
func (c *Client) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Warn("Realtime 连接中断", "err", err)
				c.Close()
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warn("Realtime 帧解析失败", "err", err)
			continue
		}

		c.post(func() { c.dispatch(&f) })
	}
}

func (c *Client) dispatch(f *frame) {
	if f.Event == evtReply {
		c.mu.Lock()
		ack := c.pendingAcks[f.Ref]
		delete(c.pendingAcks, f.Ref)
		c.mu.Unlock()

		if ack != nil {
			var reply replyPayload
			_ = json.Unmarshal(f.Payload, &reply)
			ack(reply.Status == "ok", reply.Response)
		}
		return
	}

	c.mu.Lock()
	ch := c.channels[f.Topic]
	c.mu.Unlock()
	if ch == nil {
		return
	}
	ch.handle(f)
}

// forget 从客户端移除频道（离开后）
func (c *Client) forget(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, topic)
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}
