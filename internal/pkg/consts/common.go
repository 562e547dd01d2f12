package consts

const (
	// Version 宿主与渲染壳之间的桥接协议版本
	Version = "0.1.0"

	// DefaultRoom 登录后默认进入的房间
	DefaultRoom = "general"

	// BacklogLimit 切换会话时回拉的历史消息条数
	BacklogLimit = 50
)

// Realtime 频道主题
const (
	PresenceTopic       = "presence:lobby"
	LobbyTopic          = "rooms:lobby"
	InboxTopicPrefix    = "inbox:"
	MessagesTopicPrefix = "messages:"
)

// 广播事件名
const (
	EventDirectMessage = "dm"
	EventRoomCreated   = "room_created"
)

// 远端表与存储桶
const (
	MessagesTable = "messages"
	RoomsTable    = "rooms"
	ProfilesTable = "profiles"
	ImageBucket   = "chat-images"
)
