package codec

import "time"

// Ordinal day arithmetic on the proleptic Gregorian calendar. time.Duration
// overflows after ~292 years, so spans back to year 1 (or to the Julian day
// epoch of 4713 BC) are computed with integer civil-date conversions.

// julianOffset is the difference between a Julian day number and an ordinal
// day number (days since 0001-01-01, 1-based). Visual FoxPro datetimes and
// Clipper timestamps both store Julian days.
const julianOffset = 1721425

const unixOrdinal = 719163 // ordinal of 1970-01-01

// daysFromCivil returns days since 1970-01-01.
func daysFromCivil(y, m, d int) int {
	if m <= 2 {
		y--
	}
	era := y
	if era < 0 {
		era -= 399
	}
	era /= 400
	yoe := y - era*400
	var mp int
	if m > 2 {
		mp = m - 3
	} else {
		mp = m + 9
	}
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// civilFromDays is the inverse of daysFromCivil.
func civilFromDays(z int) (y, m, d int) {
	z += 719468
	era := z
	if era < 0 {
		era -= 146096
	}
	era /= 146097
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = doy - (153*mp+2)/5 + 1
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return
}

func ordinalOf(t time.Time) int {
	y, m, d := t.Date()
	return daysFromCivil(y, int(m), d) + unixOrdinal
}

func dateFromOrdinal(n int) time.Time {
	y, m, d := civilFromDays(n - unixOrdinal)
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// millisecondOfDay returns the time-of-day portion in milliseconds.
func millisecondOfDay(t time.Time) int {
	return (t.Hour()*3600+t.Minute()*60+t.Second())*1000 + t.Nanosecond()/1e6
}

// clockFromMilliseconds splits a millisecond-of-day count.
func clockFromMilliseconds(ms int) (hour, min, sec, nsec int) {
	nsec = (ms % 1000) * 1e6
	ms /= 1000
	hour = ms / 3600
	min = ms % 3600 / 60
	sec = ms % 3600 % 60
	return
}
