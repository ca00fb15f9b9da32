package main

import (
	"flag"
	"reflect"
	"testing"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		bools []string
		want  []string
	}{
		{"flags first", []string{"--mode", "merge", "abc"}, nil, []string{"--mode", "merge", "abc"}},
		{"flags after positional", []string{"abc", "--mode", "merge"}, nil, []string{"--mode", "merge", "abc"}},
		{"bool flag keeps positional", []string{"--json", "abc"}, []string{"json"}, []string{"--json", "abc"}},
		{"equals form", []string{"abc", "--out=x.md"}, nil, []string{"--out=x.md", "abc"}},
		{"multi word name", []string{"Deep", "Work", "--tag", "go"}, nil, []string{"--tag", "go", "Deep", "Work"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args, tt.bools...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("reorderArgs(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestStringListFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var tags stringList
	fs.Var(&tags, "tag", "")
	if err := fs.Parse([]string{"--tag", "a", "--tag", "b"}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual([]string(tags), []string{"a", "b"}) {
		t.Errorf("tags = %v", tags)
	}
}

func TestOnOff(t *testing.T) {
	for in, want := range map[string]bool{"on": true, "OFF": false, "yes": true, "0": false} {
		got, err := onOff(in)
		if err != nil || got != want {
			t.Errorf("onOff(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := onOff("maybe"); err == nil {
		t.Error("expected error for maybe")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}
