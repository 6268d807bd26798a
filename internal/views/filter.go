package views

import (
	"sort"
	"strings"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// DateBucket names a relative date window for list filtering.
type DateBucket string

const (
	BucketToday   DateBucket = "today"
	BucketWeek    DateBucket = "week"
	BucketMonth   DateBucket = "month"
	BucketQuarter DateBucket = "quarter"
	BucketYear    DateBucket = "year"
	BucketAll     DateBucket = "all"
)

// Query is the list filter contract. The pipeline applies, in order:
// free-text search, categorical equality filters, the date bucket, then a
// stable sort on the record's primary timestamp.
type Query struct {
	Search   string
	Status   string
	Type     string
	Severity string
	Folder   string
	Range    DateBucket
}

// matchesSearch reports whether any field contains the query,
// case-insensitive.
func matchesSearch(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// bucketMatch compares the distance in days between now and the record's
// primary date against the bucket window. Distance is absolute, so future
// appointments fall into the same windows as past reports.
func bucketMatch(bucket DateBucket, recordDate, now time.Time) bool {
	if bucket == "" || bucket == BucketAll || recordDate.IsZero() {
		return true
	}
	if bucket == BucketToday {
		return recordDate.Format("2006-01-02") == now.Format("2006-01-02")
	}

	days := int(now.Sub(recordDate).Hours() / 24)
	if days < 0 {
		days = -days
	}
	switch bucket {
	case BucketWeek:
		return days <= 7
	case BucketMonth:
		return days <= 30
	case BucketQuarter:
		return days <= 90
	case BucketYear:
		return days <= 365
	}
	return true
}

func parseDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FilterAppointments runs the pipeline over decorated appointments. The
// result sorts ascending, soonest first; every other list sorts descending.
func FilterAppointments(appts []*AppointmentView, q Query, now time.Time) []*AppointmentView {
	out := make([]*AppointmentView, 0, len(appts))
	for _, a := range appts {
		if !matchesSearch(q.Search, a.Type, a.Notes, a.PatientName, a.DoctorName, string(a.Status)) {
			continue
		}
		if q.Status != "" && string(a.Status) != q.Status {
			continue
		}
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if !bucketMatch(q.Range, parseDay(a.AppointmentDate), now) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].When() < out[j].When()
	})
	return out
}

// FilterReports runs the pipeline over decorated reports, newest first.
func FilterReports(reports []*ReportView, q Query, now time.Time) []*ReportView {
	out := make([]*ReportView, 0, len(reports))
	for _, r := range reports {
		if !matchesSearch(q.Search, r.Findings.Condition, r.Findings.Description, r.ScanType, r.PatientName, r.DoctorName) {
			continue
		}
		if q.Status != "" && string(r.Status) != q.Status {
			continue
		}
		if q.Severity != "" && !strings.EqualFold(r.Findings.Severity, q.Severity) {
			continue
		}
		if !bucketMatch(q.Range, parseDay(r.ReportDate), now) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReportDate > out[j].ReportDate
	})
	return out
}

// FilterEmails runs the pipeline over emails, newest first.
func FilterEmails(emails []*store.Email, q Query, now time.Time) []*store.Email {
	out := make([]*store.Email, 0, len(emails))
	for _, e := range emails {
		if !matchesSearch(q.Search, e.Subject, e.Body, e.SenderEmail, e.RecipientEmail) {
			continue
		}
		if q.Folder != "" && string(e.Folder) != q.Folder {
			continue
		}
		if !bucketMatch(q.Range, e.SentAt, now) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out
}

// FilterConversations runs the pipeline over decorated threads, most
// recently active first.
func FilterConversations(convs []*ConversationView, q Query, now time.Time) []*ConversationView {
	out := make([]*ConversationView, 0, len(convs))
	for _, c := range convs {
		if !matchesSearch(q.Search, c.CounterpartName, c.LastPreview) {
			continue
		}
		if q.Status != "" && string(c.Status) != q.Status {
			continue
		}
		if !bucketMatch(q.Range, c.LastMessageTime, now) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	return out
}
