package remote

import (
	"context"
	"net/http"
	"strconv"

	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

// ---------- facilities ----------

func (c *Client) ActiveFacilities(ctx context.Context) ([]model.Facility, error) {
	var out []model.Facility
	err := c.do(ctx, "fetchActiveFacilities", http.MethodGet, "/facilities/active", nil, &out)
	return out, err
}

// ---------- registrations ----------

// RegistrationsByDate returns every mat of the facility on date, with the
// assigned guest embedded.
func (c *Client) RegistrationsByDate(ctx context.Context, facilityID int64, date string) ([]model.Registration, error) {
	var out []model.Registration
	path := pathf("/facilities/%d/registrations/%s", facilityID, date) + queryParameters(param{key: "withGuest"})
	err := c.do(ctx, "fetchRegistrationsByDate", http.MethodGet, path, nil, &out)
	return out, err
}

// AvailableRegistrations returns the unassigned mats of the facility on date.
func (c *Client) AvailableRegistrations(ctx context.Context, facilityID int64, date string) ([]model.Registration, error) {
	var out []model.Registration
	path := pathf("/facilities/%d/registrations/%s/available", facilityID, date)
	err := c.do(ctx, "fetchAvailableRegistrations", http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) SummaryRange(ctx context.Context, facilityID int64, from, to string) ([]model.Summary, error) {
	var out []model.Summary
	path := pathf("/facilities/%d/registrations/summary/%s/%s", facilityID, from, to)
	err := c.do(ctx, "fetchSummaryRange", http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Assign(ctx context.Context, registrationID int64, assign model.Assign) (model.Registration, error) {
	var out model.Registration
	err := c.do(ctx, "assign", http.MethodPost, pathf("/registrations/%d/assign", registrationID), assign, &out)
	return out, err
}

func (c *Client) Deassign(ctx context.Context, registrationID int64) (model.Registration, error) {
	var out model.Registration
	err := c.do(ctx, "deassign", http.MethodPost, pathf("/registrations/%d/deassign", registrationID), nil, &out)
	return out, err
}

func (c *Client) Reassign(ctx context.Context, fromID, toID int64) error {
	return c.do(ctx, "reassign", http.MethodPost, pathf("/registrations/%d/reassign/%d", fromID, toID), nil, nil)
}

// ---------- guests ----------

// GuestsByName searches guests of the facility by partial name. page is
// 1-based.
func (c *Client) GuestsByName(ctx context.Context, facilityID int64, text string, page, pageSize int) ([]model.Guest, error) {
	if page < 1 {
		page = 1
	}
	var out []model.Guest
	path := pathf("/facilities/%d/guests/name/%s", facilityID, text) + queryParameters(
		param{key: "limit", value: strconv.Itoa(pageSize)},
		param{key: "offset", value: strconv.Itoa((page - 1) * pageSize)},
	)
	err := c.do(ctx, "fetchGuestsByName", http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) InsertGuest(ctx context.Context, guest model.Guest) (model.Guest, error) {
	var out model.Guest
	err := c.do(ctx, "insertGuest", http.MethodPost, "/guests", guest, &out)
	return out, err
}

// GuestRegistrations returns the registration history of a guest.
func (c *Client) GuestRegistrations(ctx context.Context, guestID int64) ([]model.Registration, error) {
	var out []model.Registration
	err := c.do(ctx, "fetchGuestRegistrations", http.MethodGet, pathf("/guests/%d/registrations", guestID), nil, &out)
	return out, err
}

// CheckGuestNameUnique resolves true when no guest of the facility has this
// exact name, or the one that has it is excludingID.
func (c *Client) CheckGuestNameUnique(ctx context.Context, facilityID int64, firstName, lastName string, excludingID int64) (bool, error) {
	var found model.Guest
	path := pathf("/facilities/%d/guests/exact/%s/%s", facilityID, firstName, lastName)
	err := c.do(ctx, "fetchGuestExact", http.MethodGet, path, nil, &found)
	return unique(err, found.ID, excludingID)
}

// ---------- templates ----------

func (c *Client) ActiveTemplates(ctx context.Context, facilityID int64) ([]model.Template, error) {
	var all []model.Template
	path := pathf("/facilities/%d/templates", facilityID) + queryParameters(param{key: "active"})
	if err := c.do(ctx, "fetchActiveTemplates", http.MethodGet, path, nil, &all); err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

// CheckTemplateNameUnique resolves true when no template of the facility has
// this name, or the one that has it is excludingID.
func (c *Client) CheckTemplateNameUnique(ctx context.Context, facilityID int64, name string, excludingID int64) (bool, error) {
	var found model.Template
	path := pathf("/facilities/%d/templates/exact/%s", facilityID, name)
	err := c.do(ctx, "fetchTemplateExact", http.MethodGet, path, nil, &found)
	return unique(err, found.ID, excludingID)
}

func (c *Client) InsertTemplate(ctx context.Context, t model.Template) (model.Template, error) {
	var out model.Template
	err := c.do(ctx, "insertTemplate", http.MethodPost, "/templates", t, &out)
	return out, err
}

func (c *Client) UpdateTemplate(ctx context.Context, t model.Template) (model.Template, error) {
	var out model.Template
	err := c.do(ctx, "updateTemplate", http.MethodPut, pathf("/templates/%d", t.ID), t, &out)
	return out, err
}

// Generate creates the registrations of date from a template.
func (c *Client) Generate(ctx context.Context, templateID int64, date string) ([]model.Registration, error) {
	var out []model.Registration
	err := c.do(ctx, "generateFromTemplate", http.MethodPost, pathf("/templates/%d/generate/%s", templateID, date), nil, &out)
	return out, err
}

func unique(err error, foundID, excludingID int64) (bool, error) {
	if IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return foundID == excludingID, nil
}
