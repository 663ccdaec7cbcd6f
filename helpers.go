package main

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/polypopcareers/internal/events"
	"github.com/muhammadolammi/polypopcareers/internal/intake"
	"github.com/muhammadolammi/polypopcareers/internal/storage"
)

func newApplicationEvent(sub *intake.Submission, stored *storage.StoredResume, requestID string, at time.Time) events.ApplicationReceived {
	return events.ApplicationReceived{
		ID:             uuid.New(),
		Name:           sub.Name,
		Phone:          sub.Phone,
		Experience:     sub.Experience,
		Position:       sub.Position,
		Salary:         sub.Salary,
		ExpectedSalary: sub.ExpectedSalary,
		Filename:       sub.Resume.Filename,
		Resume:         stored,
		ReceivedAt:     at,
		RequestID:      requestID,
	}
}

func resumeMetadata(sub *intake.Submission) map[string]string {
	return map[string]string{
		"applicant":         storage.MetadataValue(sub.Name),
		"position":          storage.MetadataValue(sub.Position),
		"original-filename": storage.MetadataValue(sub.Resume.Filename),
	}
}

// privateIP returns the first private IPv4 address bound to this host, or
// "unknown".
func privateIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip := ipNet.IP.To4(); ip != nil && ip.IsPrivate() {
			return ip.String()
		}
	}
	return "unknown"
}
