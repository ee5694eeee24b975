package constants

// Directory names and paths used by aegir for organizing data.
const (
	// AegirHome is the hidden directory name where aegir stores configuration and logs.
	// This directory is created in the user's home directory.
	AegirHome = ".aegir"

	// RoutinesDir holds plan files.
	RoutinesDir = "routines"

	// SessionsDir holds one directory per acquisition session.
	SessionsDir = "sessions"

	// ImagesDir is the per-session directory for captured images.
	ImagesDir = "images"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// RunDir holds the control pipes.
	RunDir = "run"
)

// File names.
const (
	// GlobalConfigName is the name of the aegir configuration file.
	GlobalConfigName = "config.yaml"

	// CLILogFileName is the rotating CLI log in ~/.aegir/logs/.
	CLILogFileName = "aegir.log"

	// SessionLogFileName is the per-session log written while a session is active.
	SessionLogFileName = "output.log"

	// SessionFileName stores session details and the image index.
	SessionFileName = "session.json"

	// SessionListFileName indexes all sessions in the sessions directory.
	SessionListFileName = "session_list.json"

	// DataFileName is the per-session CSV of capture metadata.
	DataFileName = "data.csv"

	// LockFileName guards a session directory against concurrent writers.
	LockFileName = ".lock"

	// ControlInPipeName receives commands such as STOP.
	ControlInPipeName = "aegir.in"

	// ControlOutPipeName carries status lines out of a running routine.
	ControlOutPipeName = "aegir.out"

	// RunLockFileName sits next to the control pipes while a routine runs.
	RunLockFileName = "aegir.lock"
)

// Environment.
const (
	// EnvPrefix prefixes every environment variable read by the config layer.
	EnvPrefix = "AEGIR"

	// EnvHome overrides the location of AegirHome.
	EnvHome = "AEGIR_HOME"
)
