package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	AWS       AWSConfig
	Imaging   ImagingConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	PreviewsPerMin int
}

type AWSConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ImagingConfig locates the conversion toolchain and its assets
type ImagingConfig struct {
	IdentifyBin   string
	ConvertBin    string
	TempDir       string
	ColorProfile  string
	WatermarkText string
	WatermarkFont string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("AWS_ACCESS_KEY_ID")
	readSecret("AWS_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("aws.region", "AWS_REGION")
	_ = viper.BindEnv("aws.endpoint", "AWS_ENDPOINT")
	_ = viper.BindEnv("aws.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = viper.BindEnv("aws.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("imaging.identify_bin", "IMAGING_IDENTIFY_BIN")
	_ = viper.BindEnv("imaging.convert_bin", "IMAGING_CONVERT_BIN")
	_ = viper.BindEnv("imaging.temp_dir", "IMAGING_TEMP_DIR")
	_ = viper.BindEnv("imaging.color_profile", "IMAGING_COLOR_PROFILE")
	_ = viper.BindEnv("imaging.watermark_text", "IMAGING_WATERMARK_TEXT")
	_ = viper.BindEnv("imaging.watermark_font", "IMAGING_WATERMARK_FONT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("ratelimit.previews_per_min", 60)
	viper.SetDefault("aws.region", "us-east-1")
	viper.SetDefault("imaging.identify_bin", "identify")
	viper.SetDefault("imaging.convert_bin", "convert")
	viper.SetDefault("imaging.temp_dir", "/tmp/thumbnailer")
	viper.SetDefault("imaging.color_profile", "./colorprofiles/sRGB2014.icc")
	viper.SetDefault("imaging.watermark_text", "myadbox")
	viper.SetDefault("imaging.watermark_font", "")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			PreviewsPerMin: viper.GetInt("ratelimit.previews_per_min"),
		},
		AWS: AWSConfig{
			Region:          viper.GetString("aws.region"),
			Endpoint:        viper.GetString("aws.endpoint"),
			AccessKeyID:     viper.GetString("aws.access_key_id"),
			SecretAccessKey: viper.GetString("aws.secret_access_key"),
		},
		Imaging: ImagingConfig{
			IdentifyBin:   viper.GetString("imaging.identify_bin"),
			ConvertBin:    viper.GetString("imaging.convert_bin"),
			TempDir:       viper.GetString("imaging.temp_dir"),
			ColorProfile:  viper.GetString("imaging.color_profile"),
			WatermarkText: viper.GetString("imaging.watermark_text"),
			WatermarkFont: viper.GetString("imaging.watermark_font"),
		},
	}

	return cfg, nil
}
