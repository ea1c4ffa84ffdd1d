package ingest

import "fmt"

// Parse runs the parser registered for format against the file at path.
// It never panics and never returns a Result that breaks the Success
// invariant: parser errors and panics become a single "processing error"
// with a zero record count.
func Parse(path, filename string, format Format) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = processingError(format, fmt.Errorf("%v", r))
		}
	}()

	p, ok := Lookup(format)
	if !ok {
		res := newResult(FormatUnknown, LabelUnknown)
		res.fail(MsgFormatNotRecognized)
		return res.finish()
	}

	res, err := p.Parse(path, filename)
	if err != nil {
		return processingError(format, err)
	}
	return res.finish()
}

func processingError(format Format, err error) Result {
	res := newResult(format, format.label())
	res.fail("processing error: %v", err)
	return res.finish()
}
