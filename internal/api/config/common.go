package config

// Config 配置主体
type Config struct {
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	LiveKit  LiveKitConfig  `mapstructure:"livekit"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

// BridgeConfig 渲染壳桥接服务配置
type BridgeConfig struct {
	Port int `mapstructure:"port"`
}

// SupabaseConfig 托管数据库/认证服务配置
type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	AnonKey string `mapstructure:"anon_key"`
}

// LiveKitConfig 媒体服务配置
type LiveKitConfig struct {
	URL string `mapstructure:"url"`
	// TokenFunction Edge Function 名称，客户端通过它换取入会令牌
	TokenFunction string `mapstructure:"token_function"`

	// 以下仅 tokend 使用
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	TokenPort int    `mapstructure:"token_port"`
}

// StoreConfig 本地设备存储配置
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig 日志配置
type LogConfig struct {
	File string `mapstructure:"file"`
}
