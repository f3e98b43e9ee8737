// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	lockRoot = "/distributed_locks" // 所有分布式锁的根节点
	nodePfx  = "lock-"
)

var ErrNotLocked = errors.New("zookeeper: lock not held")

// conn 是 *zk.Conn 中用到的部分
type conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	CreateProtectedEphemeralSequential(path string, data []byte, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Delete(path string, version int32) error
}

var _ conn = (*zk.Conn)(nil)

// Connect 建立会话并等待连接可用
func Connect(servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	if len(servers) == 0 {
		return nil, errors.New("zookeeper: no server configured")
	}
	c, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, errors.Wrap(err, "zookeeper: connect")
	}
	timeout := time.After(sessionTimeout)
	for {
		select {
		case ev := <-events:
			if ev.State == zk.StateHasSession {
				log.Info().Strs("servers", servers).Msg("✅ Connected to ZooKeeper")
				return c, nil
			}
		case <-timeout:
			c.Close()
			return nil, errors.Errorf("zookeeper: no session after %s", sessionTimeout)
		}
	}
}

// DistributedLock 是基于临时顺序节点的互斥锁，会话断开时锁自动释放
type DistributedLock struct {
	conn     conn
	path     string // 例如 /distributed_locks/orders-reconciler
	lockNode string // 获取锁后自己创建的节点
}

// NewDistributedLock 创建锁并确保锁路径存在
func NewDistributedLock(c conn, resourceID string) (*DistributedLock, error) {
	lockPath := lockRoot + "/" + resourceID
	for _, p := range []string{lockRoot, lockPath} {
		if err := ensureNode(c, p); err != nil {
			return nil, err
		}
	}
	return &DistributedLock{conn: c, path: lockPath}, nil
}

func ensureNode(c conn, path string) error {
	ok, _, err := c.Exists(path)
	if err != nil {
		return errors.Wrapf(err, "zookeeper: check %s", path)
	}
	if ok {
		return nil
	}
	_, err = c.Create(path, nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return errors.Wrapf(err, "zookeeper: create %s", path)
	}
	return nil
}

// TryLock 不等待：自己的节点不是最小节点时删除节点并返回 false
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	if err := l.create(); err != nil {
		return false, err
	}
	first, _, err := l.position()
	if err != nil {
		_ = l.Unlock()
		return false, err
	}
	if first {
		return true, nil
	}
	if err := l.Unlock(); err != nil {
		log.Warn().Err(err).Str("path", l.path).Msg("failed to drop lock node")
	}
	return false, nil
}

// Lock 阻塞直到获得锁或 ctx 结束
func (l *DistributedLock) Lock(ctx context.Context) error {
	if err := l.create(); err != nil {
		return err
	}
	for {
		first, prev, err := l.position()
		if err != nil {
			_ = l.Unlock()
			return err
		}
		if first {
			return nil
		}

		// 只监听前一个节点，避免羊群效应
		exists, _, events, err := l.conn.ExistsW(l.path + "/" + prev)
		if err != nil {
			_ = l.Unlock()
			return errors.Wrap(err, "zookeeper: watch previous node")
		}
		if !exists {
			continue
		}
		select {
		case <-events:
		case <-ctx.Done():
			_ = l.Unlock()
			return ctx.Err()
		}
	}
}

// Unlock 删除自己的节点
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return ErrNotLocked
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return errors.Wrap(err, "zookeeper: delete lock node")
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) create() error {
	node, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/"+nodePfx, nil, zk.WorldACL(zk.PermAll))
	if err != nil {
		return errors.Wrap(err, "zookeeper: create sequential node")
	}
	l.lockNode = node
	return nil
}

// position 判断自己是否为最小节点，否则返回前一个节点名
func (l *DistributedLock) position() (bool, string, error) {
	children, _, err := l.conn.Children(l.path)
	if err != nil {
		return false, "", errors.Wrap(err, "zookeeper: list lock nodes")
	}
	mine := strings.TrimPrefix(l.lockNode, l.path+"/")
	return precedes(children, mine)
}

// precedes 按顺序号排序。受保护节点名带有 GUID 前缀，不能直接按字符串排序。
func precedes(children []string, mine string) (bool, string, error) {
	sorted := append([]string(nil), children...)
	sort.Slice(sorted, func(i, j int) bool { return sequenceOf(sorted[i]) < sequenceOf(sorted[j]) })
	for i, child := range sorted {
		if child != mine {
			continue
		}
		if i == 0 {
			return true, "", nil
		}
		return false, sorted[i-1], nil
	}
	return false, "", errors.Errorf("zookeeper: own node %s not found", mine)
}

func sequenceOf(node string) string {
	if i := strings.LastIndex(node, nodePfx); i >= 0 {
		return node[i+len(nodePfx):]
	}
	return node
}
