package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// configuration :
// Provides a way to configure the way logs are displayed both in terms of
// level and in terms of the machine executing the logger.
// This logger uses a display to the standard input as a logging strategy
// with some coloring based on the severity of the logs to display. The
// logger is initialized with default name for the application and with a
// local configuration but information are retrieved from the configuration
// file to modify it.
//
// The `AppName` describes a string for the name of the application using
// the logger.
// The default value is "hostd".
//
// The `Environment` allows to specify which configuration is used by the
// application executing the logger. Typical values include `production`
// and all other settings such as `development`, etc.
// The default value is "development".
//
// The `ForceLocal` allows to make sure that the instance ID assigned to
// this logger will be "local" no matter what the value provided by the
// runtime is. This allows to make logs in development environment clearer
// by ignoring the automatically generated name.
// The default value is `false`.
//
// The `Level` is a string representing the minimum severity of a log
// message in order for it to be displayed.
// The default value is "info".
//
// The `Buffer` allows to specify the size of the buffer to handle log
// messages so that bursts of traces do not block the caller.
// The default value is 500.
type configuration struct {
	AppName     string
	Environment string
	ForceLocal  bool
	Level       string
	Buffer      int
}

// traceMessage :
// Describes a message enqueued by the logger. Carries enough context
// to be rendered by the background display routine.
type traceMessage struct {
	level   Severity
	module  string
	content string
}

// StdLogger :
// Describes the logger structure used to perform logging. This logger
// forwards log messages received as Go structures to the standard output
// and handles a buffer mechanism so that callers are not blocked while
// the underlying display system is performing the log.
//
// The `config` allows to retrieve information about the settings and
// changes to apply to input log messages before displaying them.
//
// The `instanceID` represents the name of the instance of the application
// running the logger. Updated each time the application restarts which
// allows to effectively detect crashes on a single machine.
//
// The `minLevel` caches the parsed minimum severity to display.
//
// The `logChannel` is used to receive trace messages from callers before
// sending them to the logging device.
//
// The `endChannel` allows to terminate the active display loop.
//
// The `closed` indicates whether the logger has been terminated. Guarded
// by `locker`.
//
// The `waiter` allows to wait for the proper termination of the logging
// routine so that the last posted messages are displayed before exit.
type StdLogger struct {
	config     configuration
	instanceID string
	minLevel   Severity

	logChannel chan traceMessage
	endChannel chan bool
	closed     bool
	locker     sync.Mutex
	waiter     sync.WaitGroup
}

// parseConfiguration :
// Used to retrieve the parameters to apply to the logger from the
// configuration file. A default configuration is provided to work in
// most cases but one can modify some settings at runtime.
//
// Returns the arguments parsed from the configuration file.
func parseConfiguration() configuration {
	config := configuration{
		AppName:     "hostd",
		Environment: "development",
		ForceLocal:  false,
		Level:       "info",
		Buffer:      500,
	}

	if viper.IsSet("Logger.Name") {
		config.AppName = viper.GetString("Logger.Name")
	}
	if viper.IsSet("Logger.Environment") {
		config.Environment = viper.GetString("Logger.Environment")
	}
	if viper.IsSet("Logger.ForceLocal") {
		config.ForceLocal = viper.GetBool("Logger.ForceLocal")
	}
	if viper.IsSet("Logger.Level") {
		config.Level = viper.GetString("Logger.Level")
	}
	if viper.IsSet("Logger.Buffer") {
		config.Buffer = viper.GetInt("Logger.Buffer")
	}

	return config
}

// parseSeverity :
// Converts a severity name into its enum value, defaulting to `Info`
// if the name is not recognized.
func parseSeverity(name string) Severity {
	for s := Verbose; s <= Fatal; s++ {
		if s.String() == name {
			return s
		}
	}

	return Info
}

// NewStdLogger :
// Used to create a new logger with the specified instance name. The
// created logger will parse the configuration file provided by the env
// and adapt its configuration right away.
//
// The `instanceID` string might be equal to "local" if no instance ID is
// provided by the server's properties.
//
// Returns the produced logger.
func NewStdLogger(instanceID string) Logger {
	config := parseConfiguration()

	log := StdLogger{
		config:     config,
		instanceID: instanceID,
		minLevel:   parseSeverity(config.Level),
		logChannel: make(chan traceMessage, config.Buffer),
		endChannel: make(chan bool),
	}

	if len(log.instanceID) == 0 || config.ForceLocal {
		log.instanceID = "local"
	}

	log.waiter.Add(1)
	go log.performLogging()

	return &log
}

// Release :
// Used to perform the stopping of the active loop meant to handle
// logging to the underlying device. It will block until the method
// actually returns to make sure that the last logs posted are dumped.
func (log *StdLogger) Release() {
	log.locker.Lock()
	log.closed = true
	log.locker.Unlock()

	log.endChannel <- false

	log.waiter.Wait()
}

// Trace :
// Used to perform the log of the input message with the specified
// severity. The log message is not directly transmitted to the
// logging device but placed in the internal buffer so that it can be
// processed by the active logger routine without blocking the caller.
//
// The `level` describes the severity of the message to log.
//
// The `module` identifies the subsystem emitting the trace.
//
// The `message` describes the content of the message to log.
func (log *StdLogger) Trace(level Severity, module string, message string) {
	if level < log.minLevel {
		return
	}

	trace := traceMessage{
		level:   level,
		module:  module,
		content: message,
	}

	log.locker.Lock()
	defer log.locker.Unlock()

	if !log.closed {
		log.logChannel <- trace
	}
}

// performLogging :
// Used to perform logging. This method is meant to be launched as a
// goroutine and will regularly poll the internal trace channel.
func (log *StdLogger) performLogging() {
	keepGoing := true

	for keepGoing {
		select {
		case <-log.endChannel:
			keepGoing = false
		case trace := <-log.logChannel:
			log.performSingleLog(trace)
		}
	}

	// Drain whatever was queued before the release was requested.
	for {
		select {
		case trace := <-log.logChannel:
			log.performSingleLog(trace)
		default:
			log.waiter.Done()
			return
		}
	}
}

// performSingleLog :
// Used to perform a single log for the input trace. Formats the
// message with the instance id, timestamp, module and severity.
//
// The `trace` describes the message to log.
func (log *StdLogger) performSingleLog(trace traceMessage) {
	out := FormatWithBrackets(log.config.AppName, Magenta)
	out += " " + FormatWithBrackets(log.instanceID, Magenta)
	out += " " + FormatWithNoBrackets(time.Now().Format("2006-01-02 15:04:05"), Magenta)
	out += " " + FormatWithBrackets(trace.level.String(), trace.level.Color())

	if len(trace.module) > 0 {
		out += " " + FormatWithNoBrackets(trace.module, Blue)
	}

	out += " " + trace.content

	fmt.Println(out)
}
