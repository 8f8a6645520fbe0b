package syslog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RackSec/srslog"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// ErrUnknownFacility is returned for facility names that have no code.
var ErrUnknownFacility = errors.New("unknown syslog facility")

var facilities = map[string]srslog.Priority{
	"kern":     srslog.LOG_KERN,
	"user":     srslog.LOG_USER,
	"mail":     srslog.LOG_MAIL,
	"daemon":   srslog.LOG_DAEMON,
	"auth":     srslog.LOG_AUTH,
	"syslog":   srslog.LOG_SYSLOG,
	"lpr":      srslog.LOG_LPR,
	"news":     srslog.LOG_NEWS,
	"uucp":     srslog.LOG_UUCP,
	"cron":     srslog.LOG_CRON,
	"authpriv": srslog.LOG_AUTHPRIV,
	"ftp":      srslog.LOG_FTP,
	"local0":   srslog.LOG_LOCAL0,
	"local1":   srslog.LOG_LOCAL1,
	"local2":   srslog.LOG_LOCAL2,
	"local3":   srslog.LOG_LOCAL3,
	"local4":   srslog.LOG_LOCAL4,
	"local5":   srslog.LOG_LOCAL5,
	"local6":   srslog.LOG_LOCAL6,
	"local7":   srslog.LOG_LOCAL7,
}

// ParseFacility returns the facility code of name.
func ParseFacility(name string) (srslog.Priority, error) {
	f, ok := facilities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFacility, name)
	}
	return f, nil
}

// SeverityPriority returns the syslog severity of s.
func SeverityPriority(s model.Severity) srslog.Priority {
	switch s {
	case model.SeverityPanic:
		return srslog.LOG_EMERG
	case model.SeverityAlert:
		return srslog.LOG_ALERT
	case model.SeverityCritical:
		return srslog.LOG_CRIT
	case model.SeverityError:
		return srslog.LOG_ERR
	case model.SeverityWarning:
		return srslog.LOG_WARNING
	case model.SeverityNotice:
		return srslog.LOG_NOTICE
	case model.SeverityDebug:
		return srslog.LOG_DEBUG
	}
	return srslog.LOG_INFO
}
