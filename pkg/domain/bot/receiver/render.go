package receiver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/bot/receiver/keyboards"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/matlist"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/totals"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/validation"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/remote"
	"github.com/craigmcc/cityteam-guests-client/pkg/utils/transform"
)

const (
	detailsHint = `Send "amount; shower; wakeup; comments" to change the details, e.g. "5.00; 06:00; 05:30; late bus".`
	historySize = 20
)

func guestName(r model.Registration) string {
	if r.Guest != nil {
		return r.Guest.FullName()
	}
	if r.GuestID != nil {
		return fmt.Sprintf("Guest #%d", *r.GuestID)
	}
	return ""
}

func ListText(facility string, l checkin.List) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s (%s)\n", facility, keyboards.HumanDate(l.Date), l.Date)
	if len(l.Registrations) == 0 {
		b.WriteString("No mats are registered for this date.\n")
		if l.CanGenerate {
			b.WriteString("Generate them from a template below.\n")
		} else {
			b.WriteString("This facility has no active template to generate them from. Use /template to add one.\n")
		}
		return b.String()
	}
	s := totals.RegistrationsTotals(l.Registrations)
	fmt.Fprintf(&b, "Mats: %d, used %d (%s), empty %d, collected %s\n",
		s.TotalMats, s.TotalAssigned, totals.PercentAssigned(s), s.TotalUnassigned, totals.FormattedAmount(s))
	b.WriteString("Tap a mat to assign, edit, move or remove a guest.")
	return b.String()
}

func details(a model.Assign) string {
	var b strings.Builder
	amount := string(a.PaymentAmount)
	if amount == "" {
		amount = "-"
	}
	fmt.Fprintf(&b, "Payment: %s (%s) %s\n", a.PaymentType, a.PaymentType.Description(), amount)
	fmt.Fprintf(&b, "Shower: %s  Wakeup: %s\n", dash(a.ShowerTime), dash(a.WakeupTime))
	if c := transform.EmptyIfNil(a.Comments); c != "" {
		fmt.Fprintf(&b, "Comments: %s\n", c)
	}
	return b.String()
}

func dash(s *string) string {
	if v := transform.EmptyIfNil(s); v != "" {
		return v
	}
	return "-"
}

func AssignedText(a checkin.Assigned, draft model.Assign) string {
	r := a.Registration
	switch {
	case a.ConfirmingRemove:
		return fmt.Sprintf("Remove %s from mat %s?", guestName(r), r.MatNumberAndFeatures())
	case a.Moving && len(a.Available) == 0:
		return fmt.Sprintf("There are no free mats to move %s to.", guestName(r))
	case a.Moving:
		return fmt.Sprintf("Choose the mat to move %s to from mat %s.", guestName(r), r.MatNumberAndFeatures())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Mat %s: %s\n", r.MatNumberAndFeatures(), guestName(r))
	b.WriteString(details(draft))
	b.WriteString(detailsHint)
	return b.String()
}

func UnassignedText(u checkin.Unassigned, draft model.Assign) string {
	var b strings.Builder
	mat := u.Registration.MatNumberAndFeatures()
	if u.Guest != nil {
		fmt.Fprintf(&b, "Assign %s to mat %s\n", u.Guest.FullName(), mat)
		b.WriteString(details(draft))
		b.WriteString(detailsHint)
		return b.String()
	}
	fmt.Fprintf(&b, "Mat %s is free.\n", mat)
	switch {
	case u.Search == "":
		b.WriteString("Type part of a guest's name to search.")
	case len(u.Guests) == 0:
		fmt.Fprintf(&b, "No guests match %q. Try another name or add a new guest.", u.Search)
	default:
		fmt.Fprintf(&b, "Guests matching %q, page %d:", u.Search, u.Page)
	}
	return b.String()
}

// ScreenText renders the current state. facility names the selected
// facility for the list header.
func ScreenText(facility string, s checkin.State, draft model.Assign) string {
	switch st := s.(type) {
	case checkin.List:
		return ListText(facility, st)
	case checkin.Assigned:
		return AssignedText(st, draft)
	case checkin.Unassigned:
		return UnassignedText(st, draft)
	default:
		return "Choose a facility to start checking guests in."
	}
}

func HistoryText(guest string, regs []model.Registration) string {
	if len(regs) == 0 {
		return guest + " has no registrations."
	}
	sorted := make([]model.Registration, len(regs))
	copy(sorted, regs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RegistrationDate > sorted[j].RegistrationDate
	})
	if len(sorted) > historySize {
		sorted = sorted[:historySize]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "History of %s (latest %d of %d):\n", guest, len(sorted), len(regs))
	for _, r := range sorted {
		fmt.Fprintf(&b, "%s  mat %s  %s %s\n", r.RegistrationDate, r.MatNumberAndFeatures(),
			r.PaymentType, r.PaymentAmount)
	}
	return b.String()
}

// Describe turns an action error into the notice shown to the user.
func Describe(err error) string {
	var (
		dup       *checkin.DuplicateAssignmentError
		verr      *validation.ValidationError
		collab    *checkin.CollaboratorError
		status    *remote.StatusError
		parseErr  *matlist.ParseError
		fieldMsgs []string
	)
	switch {
	case errors.As(err, &dup):
		return dup.Error()
	case errors.As(err, &verr):
		for _, k := range sortedKeys(verr.Fields) {
			fieldMsgs = append(fieldMsgs, verr.Fields[k])
		}
		return strings.Join(fieldMsgs, "\n")
	case errors.As(err, &parseErr):
		return "Invalid mat list: " + parseErr.Error()
	case errors.Is(err, checkin.ErrBusy):
		return "Please wait, the previous change is still being saved."
	case errors.Is(err, checkin.ErrInvalidTransition):
		return "That action is not available right now."
	case errors.As(err, &collab) && errors.As(err, &status):
		return fmt.Sprintf("The server refused %s: %s", collab.Op, statusText(status))
	case errors.As(err, &collab):
		return fmt.Sprintf("The server could not be reached for %s. Please try again.", collab.Op)
	case errors.As(err, &status):
		return "The server refused the request: " + statusText(status)
	}
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "checkin: "); ok {
		return strings.ToUpper(rest[:1]) + rest[1:] + "."
	}
	return msg
}

func statusText(s *remote.StatusError) string {
	if s.Message != "" {
		return s.Message
	}
	return fmt.Sprintf("status %d", s.Status)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Kind names an error for the failure metric.
func Kind(err error) string {
	var (
		dup    *checkin.DuplicateAssignmentError
		verr   *validation.ValidationError
		collab *checkin.CollaboratorError
	)
	switch {
	case errors.As(err, &dup):
		return "duplicate"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &collab):
		return "collaborator"
	case errors.Is(err, checkin.ErrBusy):
		return "busy"
	case errors.Is(err, checkin.ErrInvalidTransition):
		return "transition"
	}
	return "other"
}
