// epoch/resolver.go
package epoch

import (
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/gewnthar/gnss-archiver/models"
)

// DefaultDaysAgo is used when no usable offset is supplied.
const DefaultDaysAgo = 1

// SynopticHours are the four daily ultra-rapid publication slots.
var SynopticHours = []string{"0000", "0600", "1200", "1800"}

// gpsOrigin is the start of GPS week 0.
var gpsOrigin = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// ProductSpec is the naming template for one product on the archive.
type ProductSpec struct {
	Kind   models.ProductKind
	Prefix string
	Suffix string
	Hours  []string
}

// OrbitSpec is the IGS ultra-rapid orbit product.
func OrbitSpec() ProductSpec {
	return ProductSpec{
		Kind:   models.ProductOrbit,
		Prefix: "IGS0OPSULT_",
		Suffix: "_02D_15M_ORB.SP3.gz",
		Hours:  SynopticHours,
	}
}

// IonosphereSpec is the IGS rapid global ionosphere map.
func IonosphereSpec() ProductSpec {
	return ProductSpec{
		Kind:   models.ProductIonosphere,
		Prefix: "IGS0OPSRAP_",
		Suffix: "_01D_02H_GIM.INX.gz",
		Hours:  []string{"0000"},
	}
}

// Resolve converts "days before now" into a TargetEpoch. Negative offsets fall back to yesterday.
// Days are counted from the UTC calendar date of now, whatever its location.
func Resolve(now time.Time, daysAgo int) models.TargetEpoch {
	if daysAgo < 0 {
		daysAgo = DefaultDaysAgo
	}
	utc := now.UTC()
	target := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
	return FromDate(target)
}

// FromDate builds the epoch for a calendar day.
func FromDate(day time.Time) models.TargetEpoch {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	week, dow := GPSWeek(d)
	return models.TargetEpoch{
		TargetDate:   d,
		Year:         d.Year(),
		DayOfYear:    fmt.Sprintf("%03d", d.YearDay()),
		GPSWeek:      week,
		GPSDayOfWeek: dow,
	}
}

// GPSWeek returns the GPS week number and day of week for a UTC calendar day.
// Days before the GPS origin clamp to week 0, day 0.
func GPSWeek(day time.Time) (week, dayOfWeek int) {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(gpsOrigin) {
		return 0, 0
	}
	// Calendar-day arithmetic on UTC midnights has no DST or leap-second drift.
	elapsed := int(d.Sub(gpsOrigin).Hours() / 24)
	return elapsed / 7, elapsed % 7
}

// Candidates returns one file per hour slot, in slot order.
func Candidates(e models.TargetEpoch, spec ProductSpec) []models.CandidateFile {
	hours := spec.Hours
	if len(hours) == 0 {
		hours = SynopticHours
	}
	dir := RemoteDir(e, spec.Kind)
	out := make([]models.CandidateFile, 0, len(hours))
	for _, h := range hours {
		name := spec.Prefix + strconv.Itoa(e.Year) + e.DayOfYear + h + spec.Suffix
		out = append(out, models.CandidateFile{
			Product:      spec.Kind,
			SynopticHour: h,
			RemoteDir:    dir,
			RemoteName:   name,
			LocalName:    name,
		})
	}
	return out
}

// RemoteDir is the archive sub-path holding a product for the epoch.
func RemoteDir(e models.TargetEpoch, kind models.ProductKind) string {
	switch kind {
	case models.ProductIonosphere:
		return path.Join("ionex", strconv.Itoa(e.Year), e.DayOfYear)
	default:
		return strconv.Itoa(e.GPSWeek)
	}
}

// DayRange expands an inclusive range of offsets in ascending order; reversed bounds are swapped.
func DayRange(from, to int) []int {
	if from < 0 {
		from = DefaultDaysAgo
	}
	if to < 0 {
		to = DefaultDaysAgo
	}
	if from > to {
		from, to = to, from
	}
	days := make([]int, 0, to-from+1)
	for d := from; d <= to; d++ {
		days = append(days, d)
	}
	return days
}
