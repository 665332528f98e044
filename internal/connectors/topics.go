package connectors

const (
	TopicRadioStatus   = "radio.status"
	TopicLinkStatus    = "link.status"
	TopicCommandResult = "command.result"
	TopicRawFrameIn    = "raw.frame.in"
	TopicRawFrameOut   = "raw.frame.out"
)
