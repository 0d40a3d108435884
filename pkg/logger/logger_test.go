package logger

import (
	"bytes"
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with the text format", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When initialized with the json format", func() {
			So(InitWithFormat("json"), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			So(InitWithFormat("xml"), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a json logger on a buffer", t, func() {
		var buf bytes.Buffer
		So(initWriter(&buf, "json"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields on a named logger", func() {
			Named("scene").Info(ctx, "composed", String("kind", "embedded"), Int("cards", 30))

			Convey("Then the fields, component and source are present", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"msg":"composed"`)
				So(out, ShouldContainSubstring, `"kind":"embedded"`)
				So(out, ShouldContainSubstring, `"cards":30`)
				So(out, ShouldContainSubstring, `"component":"scene"`)
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")
			So(buf.String(), ShouldNotContainSubstring, "hidden")
			So(buf.String(), ShouldContainSubstring, "shown")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() { l.Named("x").Info(context.Background(), "nothing") }, ShouldNotPanic)
	})
}
