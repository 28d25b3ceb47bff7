package chrome_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/hinclude-e2e/internal/chrome"
	"github.com/tomyan/hinclude-e2e/internal/testutil"
)

func connect(t *testing.T, fake *testutil.FakeChrome) *chrome.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host, port := fake.HostPort()
	client, err := chrome.Connect(ctx, host, port)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConnect_ResolvesWebSocketURL(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	assert.True(t, strings.HasSuffix(client.WebSocketURL(), "/devtools/browser/fake"))
}

func TestConnect_FailsWithBadPort(t *testing.T) {
	ctx := testContext(t)
	_, err := chrome.Connect(ctx, "localhost", 1)
	require.Error(t, err)
}

func TestPages_FiltersNonPageTargets(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	pages, err := client.Pages(testContext(t))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, testutil.PageTargetID, pages[0].ID)
	assert.Equal(t, "page", pages[0].Type)
}

func TestNavigateAndWait_WaitsForLoadEvent(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("Page.navigate", func(params json.RawMessage) (interface{}, error) {
		var p struct {
			URL string `json:"url"`
		}
		json.Unmarshal(params, &p)
		assert.Equal(t, "http://localhost:8080/static/basic/", p.URL)
		go func() {
			time.Sleep(20 * time.Millisecond)
			fake.Emit("Page.loadEventFired", map[string]interface{}{"timestamp": 1})
		}()
		return map[string]string{"frameId": "frame-1", "loaderId": "loader-1"}, nil
	})
	client := connect(t, fake)

	res, err := client.NavigateAndWait(testContext(t), testutil.PageTargetID, "http://localhost:8080/static/basic/")
	require.NoError(t, err)
	assert.Equal(t, "frame-1", res.FrameID)
	assert.Equal(t, "loader-1", res.LoaderID)

	methods := fake.Methods()
	assert.Contains(t, methods, "Target.attachToTarget")
	assert.Contains(t, methods, "Page.enable")
}

func TestNavigateAndWait_ErrorText(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("Page.navigate", func(json.RawMessage) (interface{}, error) {
		return map[string]string{"frameId": "frame-1", "errorText": "net::ERR_CONNECTION_REFUSED"}, nil
	})
	client := connect(t, fake)

	res, err := client.NavigateAndWait(testContext(t), testutil.PageTargetID, "http://localhost:1/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_CONNECTION_REFUSED")
	require.NotNil(t, res)
	assert.Equal(t, "net::ERR_CONNECTION_REFUSED", res.ErrorText)
}

func TestNavigateAndWait_ContextCanceled(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.NavigateAndWait(ctx, testutil.PageTargetID, "about:blank")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitFor_FindsElementAfterPolling(t *testing.T) {
	fake := testutil.StartChrome(t)
	var polls atomic.Int32
	fake.Handle("Runtime.evaluate", func(params json.RawMessage) (interface{}, error) {
		var p struct {
			Expression string `json:"expression"`
		}
		json.Unmarshal(params, &p)
		assert.Contains(t, p.Expression, `"#included-1"`)
		return testutil.EvalResult(polls.Add(1) >= 3), nil
	})
	client := connect(t, fake)

	err := client.WaitFor(testContext(t), testutil.PageTargetID, "#included-1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaitFor_Timeout(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("Runtime.evaluate", func(json.RawMessage) (interface{}, error) {
		return testutil.EvalResult(false), nil
	})
	client := connect(t, fake)

	err := client.WaitFor(testContext(t), testutil.PageTargetID, "#missing", 150*time.Millisecond)
	require.ErrorIs(t, err, chrome.ErrWaitTimeout)
	assert.Contains(t, err.Error(), "#missing")
}

func TestGetText(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("Runtime.evaluate", func(params json.RawMessage) (interface{}, error) {
		if strings.Contains(string(params), "#a") {
			return testutil.EvalResult("  Large viewport\n"), nil
		}
		return testutil.EvalResult(nil), nil
	})
	client := connect(t, fake)
	ctx := testContext(t)

	text, err := client.GetText(ctx, testutil.PageTargetID, "#a")
	require.NoError(t, err)
	assert.Equal(t, "  Large viewport\n", text)

	_, err = client.GetText(ctx, testutil.PageTargetID, "#nope")
	assert.ErrorIs(t, err, chrome.ErrElementNotFound)
}

func TestEvaluate_JSException(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("Runtime.evaluate", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"result":           map[string]interface{}{"type": "object"},
			"exceptionDetails": map[string]interface{}{"text": "Uncaught SyntaxError"},
		}, nil
	})
	client := connect(t, fake)

	_, err := client.GetText(testContext(t), testutil.PageTargetID, "#a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Uncaught SyntaxError")
}

func TestClick_DispatchesMouseSequenceAtCenter(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("DOM.getDocument", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{"root": map[string]interface{}{"nodeId": 1}}, nil
	})
	fake.Handle("DOM.querySelector", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{"nodeId": 42}, nil
	})
	fake.Handle("DOM.getBoxModel", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{"model": map[string]interface{}{
			"content": []float64{10, 20, 30, 20, 30, 40, 10, 40},
		}}, nil
	})
	client := connect(t, fake)

	require.NoError(t, client.Click(testContext(t), testutil.PageTargetID, "#a .link"))

	var events []map[string]interface{}
	for _, c := range fake.Calls() {
		if c.Method != "Input.dispatchMouseEvent" {
			continue
		}
		var p map[string]interface{}
		require.NoError(t, json.Unmarshal(c.Params, &p))
		events = append(events, p)
	}
	require.Len(t, events, 3)
	assert.Equal(t, "mouseMoved", events[0]["type"])
	assert.Equal(t, "mousePressed", events[1]["type"])
	assert.Equal(t, "mouseReleased", events[2]["type"])
	assert.Equal(t, 20.0, events[1]["x"])
	assert.Equal(t, 30.0, events[1]["y"])
	assert.Equal(t, "left", events[2]["button"])
}

func TestClick_NotFound(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("DOM.getDocument", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{"root": map[string]interface{}{"nodeId": 1}}, nil
	})
	fake.Handle("DOM.querySelector", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{"nodeId": 0}, nil
	})
	client := connect(t, fake)

	err := client.Click(testContext(t), testutil.PageTargetID, "#b .link")
	assert.ErrorIs(t, err, chrome.ErrElementNotFound)
}

func TestSetViewport(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	require.NoError(t, client.SetViewport(testContext(t), testutil.PageTargetID, 480, 800))

	var found bool
	for _, c := range fake.Calls() {
		if c.Method != "Emulation.setDeviceMetricsOverride" {
			continue
		}
		found = true
		assert.Equal(t, testutil.PageSessionID, c.SessionID)
		assert.JSONEq(t, `{"width":480,"height":800,"deviceScaleFactor":1,"mobile":false}`, string(c.Params))
	}
	assert.True(t, found)
}

func TestCaptureConsole(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	msgs, stop, err := client.CaptureConsole(testContext(t), testutil.PageTargetID)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, fake.Emit("Runtime.consoleAPICalled", map[string]interface{}{
		"type": "error",
		"args": []map[string]interface{}{
			{"type": "string", "value": "include failed:"},
			{"type": "object", "description": "Error: 404"},
		},
	}))

	select {
	case msg := <-msgs:
		assert.Equal(t, chrome.ConsoleMessage{Type: "error", Text: "include failed: Error: 404"}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no console message received")
	}

	stop()
	stop()
}

func TestProtocolError(t *testing.T) {
	fake := testutil.StartChrome(t)
	fake.Handle("Emulation.setDeviceMetricsOverride", func(json.RawMessage) (interface{}, error) {
		return nil, errors.New("Invalid parameters")
	})
	client := connect(t, fake)

	err := client.SetViewport(testContext(t), testutil.PageTargetID, 0, 0)
	require.ErrorIs(t, err, chrome.ErrProtocolError)

	var perr *chrome.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, -32000, perr.Code)
	assert.Equal(t, "Invalid parameters", perr.Message)
}

func TestCall_AfterClose(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Call(testContext(t), "Target.getTargets", nil)
	assert.ErrorIs(t, err, chrome.ErrConnectionClosed)
}

func TestCall_ConnectionDropped(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	fake.DropConnection()

	assert.Eventually(t, func() bool {
		_, err := client.Call(testContext(t), "Target.getTargets", nil)
		return errors.Is(err, chrome.ErrConnectionClosed)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCaptureConsole_Exceptions(t *testing.T) {
	fake := testutil.StartChrome(t)
	client := connect(t, fake)

	msgs, stop, err := client.CaptureConsole(testContext(t), testutil.PageTargetID)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, fake.Emit("Runtime.exceptionThrown", map[string]interface{}{
		"exceptionDetails": map[string]interface{}{
			"text":       "Uncaught",
			"url":        "http://localhost:8080/static/basic/h-include.js",
			"lineNumber": 41,
			"exception":  map[string]interface{}{"description": "TypeError: fetch is not a function"},
		},
	}))

	select {
	case msg := <-msgs:
		assert.Equal(t, "exception", msg.Type)
		assert.Equal(t, "TypeError: fetch is not a function (http://localhost:8080/static/basic/h-include.js:42)", msg.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("no exception received")
	}
}
