package eventbridge

import (
	"testing"

	"github.com/kingrea/workbench/internal/shell"
)

func TestRouterBuffersAndFlushes(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(4))
	first := Command{ID: "r-1", Topic: TopicNavigate, Tab: shell.TabAssets}
	second := Command{ID: "r-2", Topic: TopicNavigate, Tab: shell.TabDeploy}
	router.Route(first)
	router.Route(second)
	sub := router.Subscribe(TopicNavigate)
	defer sub.Close()
	got1 := <-sub.Commands
	if got1.ID != first.ID {
		t.Fatalf("expected first buffered command, got %s", got1.ID)
	}
	got2 := <-sub.Commands
	if got2.ID != second.ID {
		t.Fatalf("expected second buffered command, got %s", got2.ID)
	}
}

func TestRouterDedupeByRequestID(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe(TopicNavigate)
	defer sub.Close()
	cmd := Command{ID: "r-1", Topic: TopicNavigate, Tab: shell.TabAssets}
	router.Route(cmd)
	router.Route(cmd)
	select {
	case got := <-sub.Commands:
		if got.ID != cmd.ID {
			t.Fatalf("unexpected command: %s", got.ID)
		}
	default:
		t.Fatalf("expected first delivery")
	}
	select {
	case <-sub.Commands:
		t.Fatalf("duplicate command delivered")
	default:
	}
}

func TestRouterKeepsPayloadCommandOnOverflow(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(1))
	sub := router.Subscribe(TopicNavigate)
	defer sub.Close()
	launch := Command{ID: "r-1", Topic: TopicNavigate, Tab: shell.TabWorkbench, Payload: shell.IntentPayload{Intent: shell.DemoIntent}}
	bare := Command{ID: "r-2", Topic: TopicNavigate, Tab: shell.TabAssets}
	router.Route(launch)
	router.Route(bare)
	if got := <-sub.Commands; got.ID != launch.ID {
		t.Fatalf("expected payload command to survive, got %s", got.ID)
	}
	select {
	case <-sub.Commands:
		t.Fatalf("unexpected extra command")
	default:
	}
}

func TestRouterReplacesBareCommandOnOverflow(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(1))
	sub := router.Subscribe(TopicNavigate)
	defer sub.Close()
	router.Route(Command{ID: "r-1", Topic: TopicNavigate, Tab: shell.TabAssets})
	router.Route(Command{ID: "r-2", Topic: TopicNavigate, Tab: shell.TabDeploy})
	if got := <-sub.Commands; got.ID != "r-2" {
		t.Fatalf("expected newest bare command, got %s", got.ID)
	}
}

func TestRouterCloseStopsDelivery(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe(TopicNavigate)
	sub.Close()
	router.Route(Command{ID: "r-1", Topic: TopicNavigate, Tab: shell.TabAssets})
	if _, ok := <-sub.Commands; ok {
		t.Fatalf("closed subscription must not deliver")
	}
}
