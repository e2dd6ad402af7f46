package main

import (
	"flag"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/spf13/viper"

	"hostd/internal/api"
	"hostd/internal/cron"
	"hostd/internal/store"
	"hostd/internal/store/redisstore"
	"hostd/internal/store/sqlitestore"
	"hostd/pkg/arguments"
	"hostd/pkg/logger"
)

// usage displays the flags accepted by this server.
func usage() {
	fmt.Println("Usage:")
	fmt.Println("./hostd -config=[file] for configuration file to use (development/production)")
	fmt.Println("./hostd -sqlite=[path] to use the embedded sqlite store instead of redis")
}

// buildStore wires the production redisstore by default, falling back
// to the embedded sqlitestore reference implementation when -sqlite is
// given, matching SPEC_FULL.md §8's "two concrete implementations ship".
func buildStore(sqlitePath string, log logger.Logger) (store.Store, error) {
	if sqlitePath != "" {
		return sqlitestore.New(sqlitePath, log)
	}
	return redisstore.New(), nil
}

// main starts the scheduler background pass and the command/admin HTTP
// surface, and blocks until SIGINT.
func main() {
	help := flag.Bool("h", false, "Print usage")
	conf := flag.String("config", "", "Configuration file to customize app behavior (development/production)")
	sqlitePath := flag.String("sqlite", "", "Path to an embedded sqlite store, used instead of redis")

	flag.Parse()

	if *help {
		usage()
		return
	}

	trueConf := ""
	if conf != nil {
		trueConf = *conf
	}
	metadata := arguments.Parse(trueConf)

	log := logger.NewStdLogger(metadata.InstanceID)

	defer func() {
		if err := recover(); err != nil {
			stack := string(debug.Stack())
			log.Trace(logger.Fatal, "main", fmt.Sprintf("app crashed after error: %v (stack: %s)", err, stack))
		}
		log.Release()
	}()

	st, err := buildStore(*sqlitePath, log)
	if err != nil {
		panic(fmt.Errorf("unable to build persisted store: %v", err))
	}

	events := make(chan cron.Event, 64)

	scheduler := cron.NewScheduler(st, log, events)

	interval := 1 * time.Minute
	if viper.IsSet("Cron.PassInterval") {
		interval = time.Duration(viper.GetInt("Cron.PassInterval")) * time.Second
	}
	if err := scheduler.Start(interval); err != nil {
		panic(fmt.Errorf("unable to start scheduler: %v", err))
	}

	ctx := &api.Context{Store: st, Scheduler: scheduler, Log: log}
	server := api.NewServer(metadata.Port, ctx, events, log)

	err = server.Serve()
	scheduler.Stop()

	if err != nil {
		panic(fmt.Errorf("unexpected error while listening to port %d (err: %v)", metadata.Port, err))
	}
}
