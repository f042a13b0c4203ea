package realtime

import "fmt"

// Session traffic fans out over core NATS subjects, one per message
// kind. NATS gives per-origin FIFO to every continuously connected
// subscriber, which is exactly the ordering the merge layer assumes.
const (
	subjectState    = "session.%s.state"
	subjectJoin     = "session.%s.join"
	subjectLeave    = "session.%s.leave"
	subjectHost     = "session.%s.host"
	subjectVideo    = "session.%s.video"
	subjectPresence = "session.%s.presence"
)

// StateSubject returns the delta subject for a session.
func StateSubject(gameID string) string {
	return fmt.Sprintf(subjectState, gameID)
}

// VideoSubject returns the video-room subject for a session.
func VideoSubject(gameID string) string {
	return fmt.Sprintf(subjectVideo, gameID)
}

// SessionSubjects returns every subject a session uses, state first.
func SessionSubjects(gameID string) []string {
	out := make([]string, 0, 6)
	for _, pattern := range []string{
		subjectState, subjectJoin, subjectLeave,
		subjectHost, subjectVideo, subjectPresence,
	} {
		out = append(out, fmt.Sprintf(pattern, gameID))
	}
	return out
}
