package app

const (
	Name           = "rcd"
	ConfigFilename = "config.yaml"
	DBFilename     = "journal.db"
	LogFilename    = "rcd.log"
	// WriterQueueSize bounds pending journal writes.
	WriterQueueSize = 512
)
