package errs_test

import (
	"errors"
	"io"
	"testing"

	"github.com/okian/aol-b30/internal/domain/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeError(t *testing.T) {
	Convey("Given a decode error wrapping a cause", t, func() {
		err := error(&errs.DecodeError{Source: "cover.jpg", Err: io.ErrUnexpectedEOF})

		Convey("Then it matches the decode kind and the cause", func() {
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
			So(errors.Is(err, io.ErrUnexpectedEOF), ShouldBeTrue)
			So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeFalse)
			So(err.Error(), ShouldContainSubstring, "cover.jpg")
		})

		Convey("And it survives further wrapping", func() {
			var de *errs.DecodeError
			wrapped := errors.Join(errors.New("batch"), err)
			So(errors.As(wrapped, &de), ShouldBeTrue)
			So(de.Source, ShouldEqual, "cover.jpg")
		})
	})

	Convey("Given a decode error without a cause", t, func() {
		err := error(&errs.DecodeError{Source: "empty"})
		So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
		So(err.Error(), ShouldEqual, `decode "empty" failed`)
	})
}
