package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	for _, key := range []string{
		"RUN_ADDRESS", "DATABASE_URI", "MIGRATIONS_DIR", "JWT_SECRET", "SMTP_HOST",
	} {
		s.T().Setenv(key, "")
	}
}

func (s *ConfigTestSuite) TestFlagsAndDefaults() {
	conf, err := LoadConfig([]string{"-d", "postgres://localhost/bank", "-j", "secret", "-l", "500ms"})
	s.Require().NoError(err)

	s.Equal("localhost:8080", conf.RunAddress)
	s.Equal("postgres://localhost/bank", conf.DatabaseDSN)
	s.Equal("secret", conf.JWTSecret)
	s.Equal(500*time.Millisecond, conf.LockWaitTimeout)
	s.Equal("internal/db/migrations", conf.MigrationsDir)
	s.Equal(uint(4), conf.NotifyWorkers)
	s.Equal(uint(64), conf.NotifyQueueSize)
	s.Equal(10, conf.TempPasswordLength)
	s.Equal(10*time.Second, conf.StatementTimeout)
	s.Equal(587, conf.SMTP.Port)
	s.Empty(conf.SMTP.Host)
}

func (s *ConfigTestSuite) TestEnvWinsOverFlags() {
	s.T().Setenv("RUN_ADDRESS", ":9090")
	s.T().Setenv("DATABASE_URI", "postgres://env/bank")
	s.T().Setenv("JWT_SECRET", "env secret")
	s.T().Setenv("LOCK_WAIT_TIMEOUT", "2s")
	s.T().Setenv("SMTP_HOST", "smtp.example.com")
	s.T().Setenv("NOTIFY_WORKERS", "8")

	conf, err := LoadConfig([]string{"-a", ":7070", "-d", "postgres://flag/bank", "-l", "1s"})
	s.Require().NoError(err)

	s.Equal(":9090", conf.RunAddress)
	s.Equal("postgres://env/bank", conf.DatabaseDSN)
	s.Equal("env secret", conf.JWTSecret)
	s.Equal(2*time.Second, conf.LockWaitTimeout)
	s.Equal("smtp.example.com", conf.SMTP.Host)
	s.Equal(uint(8), conf.NotifyWorkers)
}

func (s *ConfigTestSuite) TestErrors() {
	cases := []struct {
		name string
		args []string
	}{
		{name: "no dsn", args: []string{"-j", "secret"}},
		{name: "no jwt secret", args: []string{"-d", "postgres://localhost/bank"}},
		{name: "non-positive lock timeout", args: []string{"-d", "postgres://localhost/bank", "-j", "k", "-l", "0s"}},
		{name: "unknown flag", args: []string{"-unknown"}},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			conf, err := LoadConfig(t.args)
			s.Require().Error(err)
			s.Nil(conf)
		})
	}
}
