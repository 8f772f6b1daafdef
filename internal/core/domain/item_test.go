package domain

import (
	"testing"
	"time"
)

func TestItemUpdate_IsEmpty(t *testing.T) {
	if !(ItemUpdate{}).IsEmpty() {
		t.Error("zero update should be empty")
	}

	if (ItemUpdate{Views: Ptr(int64(1))}).IsEmpty() {
		t.Error("update with views should not be empty")
	}
}

func TestNewItem(t *testing.T) {
	ts := time.Now()
	raw := RawItem{ID: 42, Text: "hello", Timestamp: ts, Views: Ptr(int64(10))}

	item := NewItem("chan", raw)

	if item.ID != 42 || item.Channel != "chan" || item.Text != "hello" {
		t.Errorf("unexpected item %+v", item)
	}

	if item.HasEmbedding() {
		t.Error("new item must not carry an embedding")
	}

	if Int64Value(item.Reactions) != 0 {
		t.Error("absent reactions should read as zero")
	}
}
