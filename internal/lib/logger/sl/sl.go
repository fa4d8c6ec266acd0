package sl

import "log/slog"

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// ChatID tags a log line with the telegram chat it concerns.
func ChatID(id int64) slog.Attr {
	return slog.Int64("chat_id", id)
}
