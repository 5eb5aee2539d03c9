package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const localTimeLayout = "2006-01-02 15:04:05"

// LocalTime 数据库时间字段，JSON 输出为本地时间格式
type LocalTime time.Time

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Time(t).Format(localTimeLayout))), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = LocalTime(time.Time{})
		return nil
	}
	parsed, err := time.ParseInLocation(`"`+localTimeLayout+`"`, s, time.Local)
	if err != nil {
		return err
	}
	*t = LocalTime(parsed)
	return nil
}

func (t LocalTime) Value() (driver.Value, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return nil, nil
	}
	return tt, nil
}

func (t *LocalTime) Scan(v interface{}) error {
	switch value := v.(type) {
	case time.Time:
		*t = LocalTime(value)
		return nil
	case nil:
		*t = LocalTime(time.Time{})
		return nil
	default:
		return fmt.Errorf("cannot scan %T into LocalTime", v)
	}
}

func (t LocalTime) Time() time.Time {
	return time.Time(t)
}
