package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/igot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
			convey.So(cfg.SQLitePath, convey.ShouldEqual, "data/igot.db")
			convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://localhost:27017/igot")
			convey.So(cfg.Cache, convey.ShouldEqual, config.CacheMemory)
			convey.So(cfg.CacheTTL, convey.ShouldEqual, time.Minute)
			convey.So(cfg.Locale, convey.ShouldEqual, "en-IN")
			convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.ProjectorWorkers, convey.ShouldEqual, min(runtime.NumCPU(), 2))
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = " " },
			"unknown store":     func(c *config.Config) { c.Store = "postgres" },
			"unknown cache":     func(c *config.Config) { c.Cache = "memcached" },
			"empty sqlite path": func(c *config.Config) { c.SQLitePath = "" },
			"empty mongo uri":   func(c *config.Config) { c.Store, c.MongoURI = config.StoreMongo, "" },
			"zero cache size":   func(c *config.Config) { c.CacheSize = 0 },
			"zero workers":      func(c *config.Config) { c.ProjectorWorkers = 0 },
			"zero queue size":   func(c *config.Config) { c.ProjectorQueueSize = 0 },
		}
		for name, mutate := range cases {
			convey.Convey("When it has "+name, func() {
				mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
