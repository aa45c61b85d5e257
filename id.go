package fiber

import (
	"strconv"
	"time"

	"github.com/sdming/gosnow"
)

// ID names a context in logs, metric labels and status output. IDs
// are snowflakes: unique per process cluster, roughly time-ordered.
type ID uint64

var Epoch = time.Date(2014, 12, 0, 0, 0, 0, 0, time.UTC)

var snowflaker *gosnow.SnowFlake

func init() {
	gosnow.Since = Epoch.UnixNano() / 1000000
	sf, err := gosnow.Default()
	if err != nil {
		panic(err)
	}
	snowflaker = sf
}

func newID() (ID, error) {
	id, err := snowflaker.Next()
	if err != nil {
		return ID(0), err
	}
	return ID(id), nil
}

func (id ID) String() string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 36)
}
