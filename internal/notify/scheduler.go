package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	firstSlotHour    = 9
	lastSlotHour     = 17
	slotStep         = 30 * time.Minute
	defaultDuration  = 30 * time.Minute
	defaultCalendar  = "primary"
	slotLayout       = "15:04"
	interviewSummary = "Interview with %s"
)

// ErrInvalidSlot is returned for times outside the interview slots.
var ErrInvalidSlot = errors.New("invalid interview slot")

// Scheduler books an interview and returns the video meeting link. An empty
// link with a nil error means the event exists without a conference.
type Scheduler interface {
	Schedule(ctx context.Context, email, name string, date time.Time, slot string) (string, error)
}

// Slots returns the bookable start times, 09:00 to 17:30 every 30 minutes.
func Slots() []string {
	var slots []string
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		for _, m := range []int{0, 30} {
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}

// DefaultDate is the day after now.
func DefaultDate(now time.Time) time.Time {
	y, m, d := now.AddDate(0, 0, 1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// SlotTime combines a date and a slot in loc.
func SlotTime(date time.Time, slot string, loc *time.Location) (time.Time, error) {
	valid := false
	for _, s := range Slots() {
		if s == slot {
			valid = true
			break
		}
	}
	if !valid {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	t, err := time.Parse(slotLayout, slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}

type insertFunc func(ctx context.Context, calendarID string, ev *calendar.Event) (*calendar.Event, error)

// Calendar schedules interviews as Google Calendar events with a Meet conference.
type Calendar struct {
	calendarID string
	location   *time.Location
	duration   time.Duration
	insert     insertFunc
	logger     *zap.Logger
}

// NewCalendar builds a Calendar scheduler on an OAuth client. timeZone is an IANA name.
func NewCalendar(ctx context.Context, client *http.Client, calendarID, timeZone string, logger *zap.Logger) (*Calendar, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar client: %w", err)
	}

	insert := func(ctx context.Context, calendarID string, ev *calendar.Event) (*calendar.Event, error) {
		return svc.Events.Insert(calendarID, ev).
			ConferenceDataVersion(1).
			SendUpdates("all").
			Context(ctx).
			Do()
	}
	return newCalendar(insert, calendarID, timeZone, logger)
}

func newCalendar(insert insertFunc, calendarID, timeZone string, logger *zap.Logger) (*Calendar, error) {
	if strings.TrimSpace(calendarID) == "" {
		calendarID = defaultCalendar
	}
	loc := time.Local
	if strings.TrimSpace(timeZone) != "" {
		var err error
		if loc, err = time.LoadLocation(timeZone); err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", timeZone, err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calendar{
		calendarID: calendarID,
		location:   loc,
		duration:   defaultDuration,
		insert:     insert,
		logger:     logger,
	}, nil
}

func (c *Calendar) Schedule(ctx context.Context, email, name string, date time.Time, slot string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrNoEmail
	}
	start, err := SlotTime(date, slot, c.location)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		name = "Candidate"
	}

	ev := &calendar.Event{
		Summary:     fmt.Sprintf(interviewSummary, name),
		Description: "Interview scheduled by the recruitment team.",
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: c.location.String()},
		End:         &calendar.EventDateTime{DateTime: start.Add(c.duration).Format(time.RFC3339), TimeZone: c.location.String()},
		Attendees:   []*calendar.EventAttendee{{Email: email}},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := c.insert(ctx, c.calendarID, ev)
	if err != nil {
		return "", fmt.Errorf("create interview event: %w", err)
	}

	link := meetLink(created)
	c.logger.Info("interview scheduled",
		zap.String("to", email),
		zap.Time("start", start),
		zap.Bool("meet", link != ""),
	)
	return link, nil
}

func meetLink(ev *calendar.Event) string {
	if ev == nil {
		return ""
	}
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}
