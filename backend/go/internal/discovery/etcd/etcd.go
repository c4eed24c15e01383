package etcd

import (
	"AskBot/backend/go/pkg/logger"
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Registry 把服务实例以带租约的键注册到 etcd，进程退出或失联后键随租约过期。
type Registry struct {
	kv    clientv3.KV
	lease clientv3.Lease
	cli   *clientv3.Client
	log   *logger.Logger
}

// NewRegistry 连接 etcd 并创建 Registry。
func NewRegistry(endpoints []string) (*Registry, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("连接 etcd 失败: %w", err)
	}
	r := newRegistry(cli, cli)
	r.cli = cli
	return r, nil
}

func newRegistry(kv clientv3.KV, lease clientv3.Lease) *Registry {
	return &Registry{kv: kv, lease: lease, log: logger.New("discovery", "", "")}
}

// ServiceKey 返回实例在 etcd 中的键，同一服务的实例共享前缀 "/<serviceName>/"。
func ServiceKey(serviceName, addr string) string {
	return "/" + serviceName + "/" + addr
}

// Register 申请租约、写入实例地址并在后台持续续约。
// ctx 只约束注册过程本身；返回的函数停止续约并撤销租约。
func (r *Registry) Register(ctx context.Context, serviceName, addr string, ttl int64) (func(context.Context) error, error) {
	grant, err := r.lease.Grant(ctx, ttl)
	if err != nil {
		return nil, fmt.Errorf("申请租约失败: %w", err)
	}
	key := ServiceKey(serviceName, addr)
	if _, err := r.kv.Put(ctx, key, addr, clientv3.WithLease(grant.ID)); err != nil {
		_, _ = r.lease.Revoke(context.WithoutCancel(ctx), grant.ID)
		return nil, fmt.Errorf("注册服务失败: %w", err)
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	keepAlive, err := r.lease.KeepAlive(keepCtx, grant.ID)
	if err != nil {
		cancel()
		_, _ = r.lease.Revoke(context.WithoutCancel(ctx), grant.ID)
		return nil, fmt.Errorf("续约失败: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// 续约响应必须被读走，否则 etcd 客户端会告警。
		for range keepAlive {
		}
		if keepCtx.Err() == nil {
			r.log.WithPayload(map[string]interface{}{"key": key}).Warn("etcd 租约已失效，服务不再可被发现")
		}
	}()

	r.log.WithPayload(map[string]interface{}{"key": key, "ttl": ttl}).Info("服务已注册到 etcd")
	return func(ctx context.Context) error {
		cancel()
		<-done
		if _, err := r.lease.Revoke(ctx, grant.ID); err != nil {
			return fmt.Errorf("撤销租约失败: %w", err)
		}
		return nil
	}, nil
}

// Close 关闭 etcd 客户端。
func (r *Registry) Close() error {
	if r.cli == nil {
		return nil
	}
	return r.cli.Close()
}
