package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/cfo-challenge/config"
	"github.com/user/cfo-challenge/internal/interfaces"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

const commandTimeout = 30 * time.Second

// ClientManager handles WhatsApp client connections
type ClientManager struct {
	clients  map[string]*ClientInfo
	commands *CommandHandler
	config   config.Config
	logger   *zap.Logger
	mutex    sync.RWMutex
}

// ClientInfo holds information about a WhatsApp client connection
type ClientInfo struct {
	UUID        string
	PhoneNumber string
	Client      *whatsmeow.Client
	Store       *store.Device
}

// Ensure ClientManager satisfies the interfaces.MessageSender interface
var _ interfaces.MessageSender = (*ClientManager)(nil)

// NewClientManager creates a new WhatsApp client manager
func NewClientManager(gameManager interfaces.GameManager, cfg config.Config, logger *zap.Logger) *ClientManager {
	return &ClientManager{
		clients:  make(map[string]*ClientInfo),
		commands: NewCommandHandler(gameManager),
		config:   cfg,
		logger:   logger,
	}
}

func (cm *ClientManager) dbPath(phoneNumber, sessionID string) string {
	return fmt.Sprintf("file:%s/store_%s_%s.db?_foreign_keys=on", cm.config.WhatsApp.StoreDir, phoneNumber, sessionID)
}

func (cm *ClientManager) newClient(deviceStore *store.Device) *whatsmeow.Client {
	// Set device properties
	store.DeviceProps.RequireFullSync = proto.Bool(false)
	store.DeviceProps.Os = proto.String(cm.config.WhatsApp.ClientName)

	clientLog := waLog.Stdout("Client", "INFO", true)
	client := whatsmeow.NewClient(deviceStore, clientLog)
	client.AddEventHandler(cm.handleWhatsAppEvent)
	return client
}

// SetupClient opens the session store of sessionID and creates its client
func (cm *ClientManager) SetupClient(sessionID, phoneNumber string) (*whatsmeow.Client, error) {
	// Create store directory if it doesn't exist
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbLog := waLog.Stdout("Database", "INFO", true)
	container, err := sqlstore.New("sqlite3", cm.dbPath(phoneNumber, sessionID), dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Get device store
	deviceStore, err := container.GetFirstDevice()
	if err != nil {
		deviceStore = container.NewDevice()
	}

	client := cm.newClient(deviceStore)

	cm.mutex.Lock()
	cm.clients[phoneNumber] = &ClientInfo{
		UUID:        sessionID,
		PhoneNumber: phoneNumber,
		Client:      client,
		Store:       deviceStore,
	}
	cm.mutex.Unlock()

	return client, nil
}

// GetClient retrieves a WhatsApp client by phone number, reconnecting it when needed
func (cm *ClientManager) GetClient(phoneNumber string) (*whatsmeow.Client, bool) {
	cm.mutex.RLock()
	clientInfo, exists := cm.clients[phoneNumber]
	cm.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if !clientInfo.Client.IsConnected() && clientInfo.Store.ID != nil {
		if err := clientInfo.Client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phoneNumber", phoneNumber),
				zap.Error(err))
			return nil, false
		}
		cm.logger.Info("Successfully reconnected client",
			zap.String("phoneNumber", phoneNumber))
	}

	return clientInfo.Client, true
}

// GetQRChannel starts a fresh session for phoneNumber and returns its QR login channel
func (cm *ClientManager) GetQRChannel(ctx context.Context, phoneNumber string) (<-chan whatsmeow.QRChannelItem, error) {
	cm.mutex.Lock()
	if clientInfo, exists := cm.clients[phoneNumber]; exists {
		clientInfo.Client.Disconnect()
		delete(cm.clients, phoneNumber)
	}
	cm.mutex.Unlock()

	client, err := cm.SetupClient(uuid.New().String(), phoneNumber)
	if err != nil {
		return nil, err
	}

	// Get QR channel before connecting
	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get QR channel: %w", err)
	}

	go func() {
		if err := client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phoneNumber", phoneNumber),
				zap.Error(err))
			return
		}
		cm.logger.Info("Client connected successfully",
			zap.String("phoneNumber", phoneNumber))
	}()

	return qrChan, nil
}

// Disconnect closes a specific WhatsApp connection
func (cm *ClientManager) Disconnect(phoneNumber string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	clientInfo, exists := cm.clients[phoneNumber]
	if !exists {
		return fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	clientInfo.Client.Disconnect()
	delete(cm.clients, phoneNumber)
	return nil
}

// DisconnectAll closes all WhatsApp connections
func (cm *ClientManager) DisconnectAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for phoneNumber, clientInfo := range cm.clients {
		if clientInfo.Client != nil {
			clientInfo.Client.Disconnect()
			cm.logger.Info("Disconnected client", zap.String("phoneNumber", phoneNumber))
		}
	}

	cm.clients = make(map[string]*ClientInfo)
}

// IsLoggedIn checks if a client is logged in
func (cm *ClientManager) IsLoggedIn(phoneNumber string) (bool, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return false, fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	return client.IsLoggedIn(), nil
}

// SendMessage sends a text message from the phoneNumber account to recipient
func (cm *ClientManager) SendMessage(phoneNumber, recipient, message string) (string, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return "", fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	recipientJID, err := parseJID(recipient)
	if err != nil {
		return "", err
	}

	return cm.send(client, recipientJID, message)
}

func (cm *ClientManager) send(client *whatsmeow.Client, target waTypes.JID, message string) (string, error) {
	msg := &waProto.Message{
		Conversation: proto.String(message),
	}

	response, err := client.SendMessage(context.Background(), target, msg)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return response.ID, nil
}

// handleWhatsAppEvent processes incoming WhatsApp events
func (cm *ClientManager) handleWhatsAppEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		cm.handleIncomingMessage(v)
	case *events.Connected:
		cm.logger.Info("WhatsApp client connected")
	case *events.Disconnected:
		cm.logger.Info("WhatsApp client disconnected")
	case *events.LoggedOut:
		cm.logger.Info("WhatsApp client logged out")
	}
}

// handleIncomingMessage runs game commands posted in the configured group
func (cm *ClientManager) handleIncomingMessage(message *events.Message) {
	// Skip messages sent by this bot
	if message.Info.MessageSource.IsFromMe {
		return
	}

	content := message.Message.GetConversation()
	if content == "" && message.Message.GetExtendedTextMessage() != nil {
		content = message.Message.GetExtendedTextMessage().GetText()
	}
	if content == "" {
		return
	}

	if !cm.acceptsChat(message.Info.Chat) {
		return
	}

	cm.logger.Debug("Received message",
		zap.String("content", content),
		zap.String("sender", message.Info.Sender.User),
		zap.String("push_name", message.Info.PushName),
		zap.String("chat", message.Info.Chat.String()))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	response := cm.commands.Handle(ctx, message.Info.PushName, content)
	if response == "" {
		return
	}

	client := cm.botClient()
	if client == nil {
		cm.logger.Error("No client available to send response")
		return
	}

	if _, err := cm.send(client, message.Info.Chat, response); err != nil {
		cm.logger.Error("Failed to send response",
			zap.String("sender", message.Info.Sender.User),
			zap.Error(err))
	}
}

// acceptsChat reports whether commands from chat drive the game.
// With a group configured only that group is accepted; otherwise any group is.
func (cm *ClientManager) acceptsChat(chat waTypes.JID) bool {
	if cm.config.WhatsApp.GroupJID == "" {
		return chat.Server == waTypes.GroupServer
	}
	return chat.String() == cm.config.WhatsApp.GroupJID
}

// botClient returns the configured account's client, or any client when none is configured
func (cm *ClientManager) botClient() *whatsmeow.Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if info, ok := cm.clients[cm.config.WhatsApp.PhoneNumber]; ok {
		return info.Client
	}
	for _, info := range cm.clients {
		return info.Client
	}
	return nil
}

// parseJID converts a string to a WhatsApp JID
func parseJID(jidString string) (waTypes.JID, error) {
	if !strings.ContainsRune(jidString, '@') {
		// Assume this is a phone number, add WhatsApp suffix
		jidString = jidString + "@" + waTypes.DefaultUserServer
	}

	return waTypes.ParseJID(jidString)
}

// storeFiles lists the session databases in storeDir
func storeFiles(storeDir string) ([]string, error) {
	return filepath.Glob(filepath.Join(storeDir, "store_*.db"))
}
