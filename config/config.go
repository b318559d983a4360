package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/pkg/validator"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Telegram TelegramConfig
	Google   GoogleConfig
	DB       DBConfig
	Backup   BackupConfig
	Booking  BookingConfig
}

type AppConfig struct {
	Port           string
	Env            string
	Timezone       string
	HealthInterval time.Duration
}

type TelegramConfig struct {
	BotToken    string `validate:"required"`
	AdminChatID int64
}

type GoogleConfig struct {
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	RedirectURL  string
	CalendarID   string
}

type DBConfig struct {
	Path         string
	ConnTimeout  time.Duration
	QueryLogging bool
}

type BackupConfig struct {
	Dir           string
	AutoBackup    bool
	Interval      time.Duration
	RetentionDays int
}

type BookingConfig struct {
	WorkingHours    []int
	RestDay         time.Weekday
	LookaheadDays   int
	SessionDuration time.Duration
}

// DefaultWorkingHours is the court's fixed template: a morning band and an
// afternoon/evening band.
var DefaultWorkingHours = []int{8, 9, 10, 11, 14, 15, 16, 17, 18, 19}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// The .env file is optional; real deployments use the environment.
	if err := viper.ReadInConfig(); err != nil && fileExists(".env") {
		return nil, err
	}

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "local")
	viper.SetDefault("APP_TIMEZONE", "Europe/Kyiv")
	viper.SetDefault("HEALTH_INTERVAL_HOURS", 6)
	viper.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/callback")
	viper.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	viper.SetDefault("DB_PATH", "data/tennis.db")
	viper.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	viper.SetDefault("DB_QUERY_LOGGING", false)
	viper.SetDefault("BACKUP_DIR", "data/backups")
	viper.SetDefault("AUTO_BACKUP", true)
	viper.SetDefault("BACKUP_INTERVAL_HOURS", 24)
	viper.SetDefault("BACKUP_RETENTION_DAYS", 30)
	viper.SetDefault("BOOKING_LOOKAHEAD_DAYS", 14)
	viper.SetDefault("BOOKING_REST_DAY", "Sunday")

	connTimeout, err := time.ParseDuration(viper.GetString("DB_CONNECT_TIMEOUT"))
	if err != nil {
		connTimeout = 5 * time.Second
	}

	workingHours, err := parseWorkingHours(viper.GetString("BOOKING_WORKING_HOURS"))
	if err != nil {
		return nil, err
	}

	restDay, err := parseWeekday(viper.GetString("BOOKING_REST_DAY"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			Timezone:       viper.GetString("APP_TIMEZONE"),
			HealthInterval: time.Duration(viper.GetInt("HEALTH_INTERVAL_HOURS")) * time.Hour,
		},
		Telegram: TelegramConfig{
			BotToken:    viper.GetString("BOT_TOKEN"),
			AdminChatID: viper.GetInt64("ADMIN_CHAT_ID"),
		},
		Google: GoogleConfig{
			ClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  viper.GetString("GOOGLE_REDIRECT_URL"),
			CalendarID:   viper.GetString("GOOGLE_CALENDAR_ID"),
		},
		DB: DBConfig{
			Path:         viper.GetString("DB_PATH"),
			ConnTimeout:  connTimeout,
			QueryLogging: viper.GetBool("DB_QUERY_LOGGING"),
		},
		Backup: BackupConfig{
			Dir:           viper.GetString("BACKUP_DIR"),
			AutoBackup:    viper.GetBool("AUTO_BACKUP"),
			Interval:      time.Duration(viper.GetInt("BACKUP_INTERVAL_HOURS")) * time.Hour,
			RetentionDays: viper.GetInt("BACKUP_RETENTION_DAYS"),
		},
		Booking: BookingConfig{
			WorkingHours:    workingHours,
			RestDay:         restDay,
			LookaheadDays:   viper.GetInt("BOOKING_LOOKAHEAD_DAYS"),
			SessionDuration: time.Hour,
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validateConfig(config *Config) error {
	validate := validator.NewValidator()
	if err := validate.Validate(&config.Telegram); err != nil {
		return fmt.Errorf("telegram config: %w", err)
	}
	if err := validate.Validate(&config.Google); err != nil {
		return fmt.Errorf("google config: %w", err)
	}
	if config.Backup.RetentionDays <= 0 {
		return fmt.Errorf("backup config: retention days must be positive, got %d", config.Backup.RetentionDays)
	}
	if config.Booking.LookaheadDays <= 0 {
		return fmt.Errorf("booking config: lookahead days must be positive, got %d", config.Booking.LookaheadDays)
	}
	return nil
}

func parseWorkingHours(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		hours := make([]int, len(DefaultWorkingHours))
		copy(hours, DefaultWorkingHours)
		return hours, nil
	}

	var hours []int
	for _, part := range strings.Split(raw, ",") {
		hour, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid working hour %q: %w", part, err)
		}
		if hour < 0 || hour > 23 {
			return nil, fmt.Errorf("working hour %d out of range", hour)
		}
		hours = append(hours, hour)
	}
	return hours, nil
}

func parseWeekday(raw string) (time.Weekday, error) {
	names := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	day, ok := names[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("invalid rest day %q", raw)
	}
	return day, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
