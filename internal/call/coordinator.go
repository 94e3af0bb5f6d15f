package call

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/antoniostano/duecall/internal/telephony"
)

// Coordinator places outbound SIP calls. One dial attempt per call, ever: a
// failed dial surfaces its full provider diagnostics and the call is torn
// down, never retried.
type Coordinator struct {
	client telephony.Client
}

func NewCoordinator(client telephony.Client) *Coordinator {
	return &Coordinator{client: client}
}

// Dial asks the platform to call phoneNumber through the trunk and place the
// callee into roomName. The callee's participant identity is the phone
// number itself, so room events can be correlated back to the dial. Dial
// blocks until the call is answered or fails; the returned latency is
// dial-to-answer.
func (c *Coordinator) Dial(ctx context.Context, roomName, phoneNumber, trunkID string) (identity string, answerLatency time.Duration, err error) {
	req := telephony.SIPParticipantRequest{
		RoomName:            roomName,
		TrunkID:             trunkID,
		CallTo:              phoneNumber,
		ParticipantIdentity: phoneNumber,
		WaitUntilAnswered:   true,
	}

	log.Printf("dialing %s into room %s via trunk %s", phoneNumber, roomName, trunkID)
	start := time.Now()
	if err := c.client.CreateSIPParticipant(ctx, req); err != nil {
		// *DialError passes through intact for diagnostics.
		return "", 0, fmt.Errorf("dial %s: %w", phoneNumber, err)
	}
	return phoneNumber, time.Since(start), nil
}
