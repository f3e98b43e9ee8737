// internal/pkg/nacos/client.go
package nacos

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/model"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Scheme 标记需要通过注册中心解析的地址，例如 nacos://products-service/。
const Scheme = "nacos"

const defaultGroup = "DEFAULT_GROUP"

// Config 是连接 Nacos 所需的参数
type Config struct {
	Addrs     string // "ip1:port1,ip2:port2"
	Namespace string
	Group     string
}

// namingAPI 是 naming_client.INamingClient 中用到的部分
type namingAPI interface {
	RegisterInstance(param vo.RegisterInstanceParam) (bool, error)
	DeregisterInstance(param vo.DeregisterInstanceParam) (bool, error)
	SelectOneHealthyInstance(param vo.SelectOneHealthInstanceParam) (*model.Instance, error)
	CloseClient()
}

var _ namingAPI = (naming_client.INamingClient)(nil)

// Client 封装了 Nacos 命名客户端
type Client struct {
	naming namingAPI
	group  string

	// 本实例的注册信息，Deregister 时使用
	registered *vo.RegisterInstanceParam
}

// ParseServerAddrs 把 "host:port" 列表解析为 Nacos 服务端配置。
func ParseServerAddrs(addrs string) ([]constant.ServerConfig, error) {
	var serverConfigs []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid nacos address %q", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid port in nacos address %q", addr)
		}
		serverConfigs = append(serverConfigs, *constant.NewServerConfig(host, port))
	}
	if len(serverConfigs) == 0 {
		return nil, errors.New("nacos: no server address configured")
	}
	return serverConfigs, nil
}

// NewClient 创建并返回一个新的 Nacos 客户端
func NewClient(cfg Config) (*Client, error) {
	serverConfigs, err := ParseServerAddrs(cfg.Addrs)
	if err != nil {
		return nil, err
	}
	if cfg.Namespace == "" {
		log.Warn().Msg("nacos namespace is not set, using the public namespace")
	}
	group := cfg.Group
	if group == "" {
		group = defaultGroup
	}

	clientConfig := *constant.NewClientConfig(
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir("/tmp/nacos/log"),
		constant.WithCacheDir("/tmp/nacos/cache"),
		constant.WithLogLevel("warn"),
		constant.WithNamespaceId(cfg.Namespace),
	)
	namingClient, err := clients.NewNamingClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create nacos naming client")
	}

	log.Info().Str("addrs", cfg.Addrs).Str("group", group).Msg("✅ Connected to Nacos")
	return &Client{naming: namingClient, group: group}, nil
}

// Register 以临时实例注册本服务，心跳断开后自动摘除
func (c *Client) Register(serviceName, ip string, port int) error {
	param := vo.RegisterInstanceParam{
		Ip:          ip,
		Port:        uint64(port),
		ServiceName: serviceName,
		Weight:      10,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		GroupName:   c.group,
	}
	ok, err := c.naming.RegisterInstance(param)
	if err != nil {
		return errors.Wrapf(err, "register %s with nacos", serviceName)
	}
	if !ok {
		return errors.Errorf("nacos rejected registration of %s", serviceName)
	}
	c.registered = &param
	log.Info().Str("service", serviceName).Str("ip", ip).Int("port", port).Msg("✅ Registered to Nacos")
	return nil
}

// Deregister 注销 Register 注册的实例，未注册时什么也不做
func (c *Client) Deregister() error {
	if c.registered == nil {
		return nil
	}
	p := c.registered
	_, err := c.naming.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          p.Ip,
		Port:        p.Port,
		ServiceName: p.ServiceName,
		Ephemeral:   true,
		GroupName:   c.group,
	})
	if err != nil {
		return errors.Wrapf(err, "deregister %s from nacos", p.ServiceName)
	}
	c.registered = nil
	log.Info().Str("service", p.ServiceName).Msg("Deregistered from Nacos")
	return nil
}

// Discover 返回一个健康实例的地址，负载均衡由 Nacos 完成
func (c *Client) Discover(serviceName string) (string, int, error) {
	instance, err := c.naming.SelectOneHealthyInstance(vo.SelectOneHealthInstanceParam{
		ServiceName: serviceName,
		GroupName:   c.group,
	})
	if err != nil {
		return "", 0, errors.Wrapf(err, "discover healthy instance of %s", serviceName)
	}
	if instance == nil {
		return "", 0, errors.Errorf("no healthy instance available for %s", serviceName)
	}
	return instance.Ip, int(instance.Port), nil
}

// ResolveURL 把 nacos://service/path 替换为 http://ip:port/path，其他地址原样返回
func (c *Client) ResolveURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != Scheme {
		return raw, nil
	}
	ip, port, err := c.Discover(u.Hostname())
	if err != nil {
		return "", err
	}
	u.Scheme = "http"
	u.Host = net.JoinHostPort(ip, strconv.Itoa(port))
	return u.String(), nil
}

func (c *Client) Close() error {
	c.naming.CloseClient()
	return nil
}

// OutboundIP 返回本机访问外网时使用的地址，用于注册。UDP 拨号不会真正发送数据。
func OutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", errors.Wrap(err, "detect outbound ip")
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
