// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// calendarDateLayout はカレンダー日付の正準フォーマット。
const calendarDateLayout = "2006-01-02"

// CalendarDate は日単位のカレンダー日付を表す。
// 時刻・タイムゾーンオフセットを持たず、ショップのローカル暦における
// 「日」のみを意味する。販売期間の開始日・終了日の正準表現として使用する。
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDate は年・月・日からCalendarDateを生成する。
// 2月30日のような存在しない日付はエラーを返す。
func NewCalendarDate(year int, month time.Month, day int) (CalendarDate, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return CalendarDate{}, fmt.Errorf("存在しない日付です: %04d-%02d-%02d", year, month, day)
	}
	return CalendarDate{Year: year, Month: month, Day: day}, nil
}

// ParseCalendarDate は "YYYY-MM-DD" 形式の文字列をパースする。
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(calendarDateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("カレンダー日付のパースに失敗しました: %w", err)
	}
	return CalendarDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf は指定ロケーションにおけるtの暦日を返す。
// チェックアウト時の「ショップのローカル日付」の導出に使用する。
// 時刻成分はここで切り捨てられ、以降の比較はすべて日単位で行われる。
func DateOf(t time.Time, loc *time.Location) CalendarDate {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return CalendarDate{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// IsZero はゼロ値かどうかを返す。
func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String は "YYYY-MM-DD" 形式の文字列を返す。
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare はotherとの前後関係を返す。
// dがotherより前なら負、同日なら0、後なら正。
func (d CalendarDate) Compare(other CalendarDate) int {
	if d.Year != other.Year {
		return d.Year - other.Year
	}
	if d.Month != other.Month {
		return int(d.Month) - int(other.Month)
	}
	return d.Day - other.Day
}

// Before はdがotherより前の日かどうかを返す。
func (d CalendarDate) Before(other CalendarDate) bool {
	return d.Compare(other) < 0
}

// After はdがotherより後の日かどうかを返す。
func (d CalendarDate) After(other CalendarDate) bool {
	return d.Compare(other) > 0
}

// Equal はdとotherが同日かどうかを返す。
func (d CalendarDate) Equal(other CalendarDate) bool {
	return d.Compare(other) == 0
}

// AddDays はn日後（nが負の場合はn日前）の日付を返す。
// 月末・年末をまたぐ場合はtimeパッケージの正規化に従う。
func (d CalendarDate) AddDays(n int) CalendarDate {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return CalendarDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// MarshalJSON は "YYYY-MM-DD" のJSON文字列として直列化する。
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON は "YYYY-MM-DD" のJSON文字列から復元する。
func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("カレンダー日付はJSON文字列である必要があります: %s", string(data))
	}
	parsed, err := ParseCalendarDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
