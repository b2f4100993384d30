// Copyright (c) 2025 The UFT Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cpm

import (
	"fmt"
	"time"
)

// cpmEpoch is day 1 of the CP/M Plus calendar: 1978-01-01.
var cpmEpoch = time.Date(1978, time.January, 1, 0, 0, 0, 0, time.UTC)

// Timestamp is a CP/M Plus date stamp: days since the 1978 epoch (day 1 is
// 1978-01-01) plus hour and minute. Disks without date stamping leave it
// invalid.
type Timestamp struct {
	Days   uint16
	Hour   uint8
	Minute uint8
	Valid  bool
}

// Time converts the stamp to wall-clock time. The second return is false
// for invalid stamps.
func (t Timestamp) Time() (time.Time, bool) {
	if !t.Valid || t.Days == 0 {
		return time.Time{}, false
	}
	day := cpmEpoch.AddDate(0, 0, int(t.Days)-1)
	return day.Add(time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute), true
}

// TimestampOf builds a stamp from wall-clock time. Times before the epoch
// yield an invalid stamp.
func TimestampOf(tm time.Time) Timestamp {
	if tm.Before(cpmEpoch) {
		return Timestamp{}
	}
	days := int(tm.Sub(cpmEpoch).Hours()/24) + 1
	if days < 1 || days > 0xFFFF {
		return Timestamp{}
	}
	return Timestamp{
		Days:   uint16(days),
		Hour:   uint8(tm.Hour()),
		Minute: uint8(tm.Minute()),
		Valid:  true,
	}
}

func (t Timestamp) String() string {
	tm, ok := t.Time()
	if !ok {
		return "---"
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", tm.Year(), tm.Month(), tm.Day(), t.Hour, t.Minute)
}
