package cli

var (
	verbose    bool
	configPath string

	// for server commands
	listenAddr string
	enableCORS bool
	isDaemon   bool

	// for replay command
	replaySettle    bool
	replayFocusWin  int
	replayFocusElem int64
)
