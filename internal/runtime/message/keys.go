package message

// Application property keys read into named header fields.
const (
	PropertyMessageType  = "MessageType"
	PropertyHandledCount = BagKeyHandledCount
	PropertyReplyTo      = "ReplyTo"
	PropertySource       = "cloudEvents_source"
	PropertyType         = "cloudEvents_type"
	PropertyTime         = "cloudEvents_time"
	PropertyDataSchema   = "cloudEvents_dataschema"
	PropertySubject      = "cloudEvents_subject"
	PropertyPartitionKey = "cloudEvents_partitionkey"
	PropertyTraceParent  = "traceparent"
	PropertyTraceState   = "tracestate"
	PropertyBaggage      = BagKeyBaggage
)

// FieldContentType names the content type in diagnostics. It is read from
// the raw message, not from the properties.
const FieldContentType = "ContentType"
