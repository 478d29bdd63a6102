package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Match     MatchConfig     `mapstructure:"match"`
	Streak    StreakConfig    `mapstructure:"streak"`
	Pet       PetConfig       `mapstructure:"pet"`
	Garden    GardenConfig    `mapstructure:"garden"`
	Game      GameConfig      `mapstructure:"game"`
	Premium   PremiumConfig   `mapstructure:"premium"`
	Rating    RatingConfig    `mapstructure:"rating"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WebSocketConfig WebSocket推送配置
type WebSocketConfig struct {
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	SendBufferSize  int           `mapstructure:"send_buffer_size"`
}

// MatchConfig 匹配配置
type MatchConfig struct {
	HistoryWindow    time.Duration `mapstructure:"history_window"`    // 重复匹配排除窗口
	BaseScore        int           `mapstructure:"base_score"`        // 候选人基础分
	PremiumBonus     int           `mapstructure:"premium_bonus"`     // 候选人会员加分
	HighRatingBonus  int           `mapstructure:"high_rating_bonus"` // 评分>=4.5加分（请求者为会员时）
	GoodRatingBonus  int           `mapstructure:"good_rating_bonus"` // 评分>=4.0加分（请求者为会员时）
	WaitingDivisor   int           `mapstructure:"waiting_divisor"`   // 等待秒数折算除数
	MinRatingsForAvg int           `mapstructure:"min_ratings_for_avg"`
}

// StreakConfig 连续打卡配置
type StreakConfig struct {
	RewardThreshold int     `mapstructure:"reward_threshold"` // 开始发奖的天数
	BaseReward      int     `mapstructure:"base_reward"`
	WeekMultiplier  float64 `mapstructure:"week_multiplier"`  // >=7天
	MonthMultiplier float64 `mapstructure:"month_multiplier"` // >=30天
}

// PetConfig 宠物配置
type PetConfig struct {
	MaxPets int      `mapstructure:"max_pets"`
	Types   []string `mapstructure:"types"`
}

// GardenConfig 花园配置
type GardenConfig struct {
	MaxLevel       int `mapstructure:"max_level"`
	RewardPerLevel int `mapstructure:"reward_per_level"` // 每级每日产出
}

// GameConfig 游戏配置
type GameConfig struct {
	BaseReward int `mapstructure:"base_reward"` // 获胜者额外奖励
	MinBet     int `mapstructure:"min_bet"`
	MaxBet     int `mapstructure:"max_bet"`
}

// PremiumConfig 临时会员配置
type PremiumConfig struct {
	TempCost     int           `mapstructure:"temp_cost"`
	TempDuration time.Duration `mapstructure:"temp_duration"`
	TempCooldown time.Duration `mapstructure:"temp_cooldown"`
}

// RatingConfig 评分配置
type RatingConfig struct {
	RaterReward  int `mapstructure:"rater_reward"`   // 评分者奖励（>=4星）
	RatedReward  int `mapstructure:"rated_reward"`   // 被评者奖励（>=4星）
	RewardScore  int `mapstructure:"reward_score"`   // 触发奖励的最低星级
	MinShowCount int `mapstructure:"min_show_count"` // 展示平均分的最少评价数
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig JWT配置（网关共享密钥）
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("PAIRLY")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		err = v.Unmarshal(cfg)
	})

	return err
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/pairly.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "info")
	v.SetDefault("database.auto_migrate", true)

	// WebSocket默认配置
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.send_buffer_size", 256)

	// 匹配默认配置
	v.SetDefault("match.history_window", "30m")
	v.SetDefault("match.base_score", 100)
	v.SetDefault("match.premium_bonus", 25)
	v.SetDefault("match.high_rating_bonus", 20)
	v.SetDefault("match.good_rating_bonus", 10)
	v.SetDefault("match.waiting_divisor", 10)
	v.SetDefault("match.min_ratings_for_avg", 5)

	// 打卡默认配置
	v.SetDefault("streak.reward_threshold", 3)
	v.SetDefault("streak.base_reward", 10)
	v.SetDefault("streak.week_multiplier", 1.5)
	v.SetDefault("streak.month_multiplier", 2.0)

	// 宠物默认配置
	v.SetDefault("pet.max_pets", 7)
	v.SetDefault("pet.types", []string{
		"Panda", "Fox", "Dog", "Snake", "Alligator", "Dragon", "Parrot",
	})

	// 花园默认配置
	v.SetDefault("garden.max_level", 3)
	v.SetDefault("garden.reward_per_level", 20)

	// 游戏默认配置
	v.SetDefault("game.base_reward", 50)
	v.SetDefault("game.min_bet", 1)
	v.SetDefault("game.max_bet", 1000)

	// 临时会员默认配置
	v.SetDefault("premium.temp_cost", 1000)
	v.SetDefault("premium.temp_duration", "72h")
	v.SetDefault("premium.temp_cooldown", "360h")

	// 评分默认配置
	v.SetDefault("rating.rater_reward", 10)
	v.SetDefault("rating.rated_reward", 20)
	v.SetDefault("rating.reward_score", 4)
	v.SetDefault("rating.min_show_count", 5)

	// 安全默认配置
	v.SetDefault("security.jwt.secret", "")
	v.SetDefault("security.jwt.expire_hours", 24)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "pairly.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载")
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool 获取布尔配置
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetFloat64 获取浮点数配置
func GetFloat64(key string) float64 {
	return v.GetFloat64(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}

// IsSet 检查配置项是否存在
func IsSet(key string) bool {
	return v.IsSet(key)
}

// Set 动态设置配置值
func Set(key string, value interface{}) {
	v.Set(key, value)
}
